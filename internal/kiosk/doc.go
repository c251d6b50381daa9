// Package kiosk is the full-screen terminal surface of the fridge.
//
// A bubbletea Model renders the session snapshots it receives through a
// Feed and turns key presses into session events. The Model holds no
// session state of its own apart from the credential form shown during
// setup, which is submitted as a whole.
package kiosk
