//go:build !linux

package iofile

const dsyncFlag = 0
