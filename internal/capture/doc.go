// Package capture grabs still frames from local webcams.
//
// The default Grabber shells out to ffmpeg. Building with -tags=gst swaps in
// an in-process GStreamer pipeline (grab_gst.go).
package capture
