// Package gochannel provides the in-memory event channel used by single-process deployments
// and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBuffer is the output buffer of each subscription.
const DefaultBuffer = 1000

// CreateChannel returns one in-memory pub/sub as both publisher and subscriber.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := New(logger, DefaultBuffer)

	return pubSub, pubSub, nil
}

// New creates an in-memory pub/sub. Events published while nobody is subscribed are lost.
func New(logger watermill.LoggerAdapter, buffer int64) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, logger)
}
