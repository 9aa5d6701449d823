// Package cyton implements the serial protocol of the 8-channel biosignal
// acquisition board.
package cyton

// Two layers share the same serial link.
//
// The command layer is ASCII: the host writes 1-9 byte commands and the
// board answers with free-form text that ends once three '$' characters have
// been sent.
//
// The streaming layer is binary: after 'b' the board emits 33-byte frames
// back to back. There is no length prefix and no checksum. A frame starts
// with 0xA0 and ends with 0xC0, so the footer of one frame immediately
// followed by the header of the next (0xC0, 0xA0) is the only thing used to
// find frame boundaries. Synchronizer relies on that marker pair alone and
// recovers from dropped or inserted bytes within one frame period.
