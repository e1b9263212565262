// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package main

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SocketInput is an Input reading newline-delimited JSON scan events
// from a Unix socket.
type SocketInput struct {
	EventChan     chan ScanEvent
	Verbose       bool
	Running       bool
	InputListener net.Listener
	StopChan      chan bool
	StoppedChan   chan bool
	WaitGroup     *sync.WaitGroup
	FileDir       string
	InputSocket   string
	Conn          net.Conn
}

func (si *SocketInput) handleServerConnection() {
	for {
		log.Debug("waiting for new connection")
		select {
		case <-si.StopChan:
			close(si.StoppedChan)
			return
		default:
			si.InputListener.(*net.UnixListener).SetDeadline(time.Now().Add(1e9))
			c, err := si.InputListener.Accept()
			if nil != err {
				if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
					continue
				}
				log.Info(err)
			}

			// we have a connection
			si.Conn = c
			reader := bufio.NewReader(c)

			for {
				if si.Conn == nil {
					break
				}

				line, err := reader.ReadBytes('\n')
				if err == io.EOF {
					break
				}

				var ev ScanEvent
				err = json.Unmarshal(line, &ev)
				if err != nil {
					log.Errorf("could not unmarshal JSON '%s': %s", string(line), err)
					continue
				}

				if ev.Path == "" {
					log.Errorf("scan event without path: '%s'", string(line))
					continue
				}
				if !filepath.IsAbs(ev.Path) {
					ev.Path = filepath.Join(si.FileDir, ev.Path)
				}
				log.Debugf("received scan event: %v", ev)

				si.WaitGroup.Add(1)
				si.EventChan <- ev
			}
		}
	}
}

// MakeSocketInput returns a new SocketInput reading from the Unix socket
// inputSocket and writing parsed events to outChan. If no such socket could be
// created for listening, the error returned is set accordingly.
func MakeSocketInput(inputSocket string, outChan chan ScanEvent,
	fileDir string, wg *sync.WaitGroup) (*SocketInput, error) {
	var err error

	si := &SocketInput{
		EventChan:   outChan,
		Verbose:     false,
		StopChan:    make(chan bool),
		WaitGroup:   wg,
		FileDir:     fileDir,
		InputSocket: inputSocket,
	}
	_, err = os.Stat(inputSocket)
	if err == nil {
		os.Remove(inputSocket)
	}
	si.InputListener, err = net.Listen("unix", inputSocket)
	if err != nil {
		return nil, err
	}
	return si, err
}

// Run starts the SocketInput
func (si *SocketInput) Run() {
	if !si.Running {
		si.Running = true
		si.StopChan = make(chan bool)
		go si.handleServerConnection()
	}
}

// Stop causes the SocketInput to stop reading from the socket and close all
// associated channels, including the passed notification channel.
func (si *SocketInput) Stop(stoppedChan chan bool) {
	if si != nil && si.Running {
		si.StoppedChan = stoppedChan
		if si.Conn != nil {
			si.Conn.Close()
			si.Conn = nil
		}
		close(si.StopChan)
		si.Running = false
		_, err := os.Stat(si.InputSocket)
		if err == nil {
			os.Remove(si.InputSocket)
		}
	} else {
		close(stoppedChan)
	}
}

// SetVerbose sets the input's verbosity level
func (si *SocketInput) SetVerbose(verbose bool) {
	si.Verbose = verbose
}
