// Package ui holds the interface side of InsightEye: the control loop that
// owns all view mutation and the Screen it mutates.
//
// Anything that changes the Screen runs on the Loop goroutine. Other
// goroutines post closures with Loop.Post or Loop.Call and read snapshots
// through Screen.View, History.Since or a subscription.
package ui
