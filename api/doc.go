// Package api is the HTTP surface of the diarization service:
//
//	POST /diarize                 audio upload + transcript segments
//	GET  /health                  pipeline state
//	GET  /test                    static liveness message
//	GET  /admin/pipeline          pipeline snapshot
//	POST /admin/pipeline/reset    retry a failed load
//
// Non-200 answers carry a {status, message} body where status is
// "loading" or "error".
package api
