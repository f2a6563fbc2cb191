//go:build windows

package main

import "os"

// ttyMode is empty on windows, the console does not echo interrupts.
type ttyMode struct{}

func quietTTY(*os.File) *ttyMode { return nil }

func (*ttyMode) restore() {}
