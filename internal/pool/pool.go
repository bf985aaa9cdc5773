package pool

import "sync"

// Buffer classes for the transport hot path.
const (
	DatagramBufSize = 2048 // one wire datagram at max MTU, with slack
	PayloadBufSize  = 8192 // copied message payloads handed to the application
)

var (
	datagramPool = sync.Pool{
		New: func() interface{} {
			b := make([]byte, DatagramBufSize)
			return &b
		},
	}
	payloadPool = sync.Pool{
		New: func() interface{} {
			b := make([]byte, PayloadBufSize)
			return &b
		},
	}
)

// GetDatagram returns a datagram-sized buffer from the pool.
func GetDatagram() *[]byte {
	return datagramPool.Get().(*[]byte)
}

// PutDatagram returns a datagram buffer to the pool.
func PutDatagram(b *[]byte) {
	if b == nil || cap(*b) < DatagramBufSize {
		return
	}
	*b = (*b)[:DatagramBufSize]
	datagramPool.Put(b)
}

// GetPayload returns a payload-sized buffer from the pool.
func GetPayload() *[]byte {
	return payloadPool.Get().(*[]byte)
}

// PutPayload returns a payload buffer to the pool.
func PutPayload(b *[]byte) {
	if b == nil || cap(*b) < PayloadBufSize {
		return
	}
	*b = (*b)[:PayloadBufSize]
	payloadPool.Put(b)
}
