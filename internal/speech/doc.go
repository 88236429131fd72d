// Package speech records and recognizes voice commands and reads captions
// aloud.
//
// Recognition uses whisper.cpp when built with -tags=whisper_cpp; otherwise a
// stub engine that never hears anything is compiled in. Recording and
// text-to-speech shell out to arecord and espeak-ng.
package speech
