// Package imaging resolves, validates and decodes images for captioning and
// tracks webcam capture artifacts on disk.
package imaging
