package main

// General API documentation for swaggo. Run `swag init -g cmd/insighteye/docs.go` to regenerate docs.
//
// @title           InsightEye API
// @version         1.0
// @description     HTTP interface for image captioning from uploads, the webcam and voice commands.
//
// @contact.name   InsightEye maintainers
// @contact.url    https://github.com/SpideyPotter/InsightEye
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
