package ipc

import (
	"fmt"
	"net"
	"time"
)

const (
	defaultDialTimeout = 2 * time.Second
	defaultRWTimeout   = 5 * time.Second
)

// Send dials pipeName (DefaultPipeName when empty), sends req and returns
// the response.
func Send(pipeName string, req Request) (Response, error) {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	conn, err := dialPipe(pipeName, defaultDialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()
	return roundTrip(conn, req)
}

func roundTrip(conn net.Conn, req Request) (Response, error) {
	if err := conn.SetDeadline(time.Now().Add(defaultRWTimeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	if err := writeFrame(conn, req); err != nil {
		return Response{}, fmt.Errorf("write request: %w", err)
	}
	raw, err := readFrame(newFrameReader(conn), maxFrameBytes)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	return resp, nil
}
