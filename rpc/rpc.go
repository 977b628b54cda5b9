package rpc

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"

	"github.com/vsariola/moog"
)

type (
	// Target accepts events without blocking.
	Target interface {
		Send(event moog.Event) bool
	}

	EventServer struct {
		target Target
	}

	// RemoteSynth forwards events to a synth served by Receiver in another
	// process.
	RemoteSynth struct {
		client *rpc.Client
	}
)

const DefaultAddress = ":31337"

// Send is the remote procedure; accepted reports whether the event fit in
// the queue of the synth.
func (s *EventServer) Send(ev moog.Event, accepted *bool) error {
	*accepted = s.target.Send(ev)
	return nil
}

// Receiver serves events from remote senders to target. Closing the returned
// listener stops serving.
func Receiver(address string, target Target) (net.Listener, error) {
	server := rpc.NewServer()
	if err := server.Register(&EventServer{target: target}); err != nil {
		return nil, fmt.Errorf("rpc.Register failed: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("net.listen failed: %v", err)
	}
	go http.Serve(l, mux)
	return l, nil
}

func Dial(address string) (*RemoteSynth, error) {
	client, err := rpc.DialHTTP("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("rpc.DialHTTP failed: %v", err)
	}
	return &RemoteSynth{client: client}, nil
}

// Send delivers the event and reports whether the remote synth accepted it.
// A broken connection counts as a dropped event.
func (r *RemoteSynth) Send(ev moog.Event) bool {
	var accepted bool
	if err := r.client.Call("EventServer.Send", ev, &accepted); err != nil {
		return false
	}
	return accepted
}

func (r *RemoteSynth) Close() error {
	if err := r.client.Close(); err != nil && !errors.Is(err, rpc.ErrShutdown) {
		return err
	}
	return nil
}
