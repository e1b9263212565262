// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package main

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"
	"github.com/DCSO/deepstrings/scandb"
	"github.com/DCSO/deepstrings/sniff"
	"github.com/DCSO/deepstrings/submitter"
	"github.com/DCSO/deepstrings/uploader"

	log "github.com/sirupsen/logrus"
)

const (
	numWorkers = 5
)

// ScanEvent describes one file submitted for scanning, either via the
// input socket or the backlog walk. An empty FileType triggers magic
// detection on the file itself.
type ScanEvent struct {
	Path     string `json:"path"`
	FileType string `json:"file_type"`
	DeepScan bool   `json:"deep_scan"`
}

// Watcher represents a scanning context on a given directory, allowing the
// process to be started and stopped concurrently as a component.
type Watcher struct {
	StartStopLock     sync.Mutex
	StopperChan       chan bool
	FinishNotifyChan  chan bool
	ScanCandidateChan chan ScanEvent
	IsRunning         bool
	FileDir           string
	WaitGroup         sync.WaitGroup
	SocketInput       *SocketInput
	Uploader          *uploader.Uploader
	RescanTimeframe   time.Duration
}

// backlogBuilder is called on program start to make a quick check of the
// sample directory to make sure we don't miss a file.
func (w *Watcher) backlogBuilder(path string) {
	files := make([]string, 0)
	log.Infof("building backlog")
	err := filepath.Walk(path,
		func(fpath string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			fi, err := os.Stat(fpath)
			if err != nil {
				return err
			}
			switch mode := fi.Mode(); {
			case mode.IsRegular():
				files = append(files, fpath)
			default:
				// pass
			}
			return nil
		})
	if err != nil {
		log.Println(err)
	}
	for _, f := range files {
		log.Debugf("found %s, submitting...", f)
		w.WaitGroup.Add(1)
		w.ScanCandidateChan <- ScanEvent{
			Path: f,
		}
	}
	w.WaitGroup.Wait()
	log.Infof("finished building backlog")
}

// fileWorker takes a scan event and runs the registered pipelines over
// the file, persisting the report and shipping it out.
func (w *Watcher) fileWorker(s submitter.Submitter) {
	for ev := range w.ScanCandidateChan {
		log.Debugf("worker grabbed file %s for processing", ev.Path)
		err := w.processEvent(ev, s)
		if err != nil {
			log.Error("scan: ", err)
		}
		w.WaitGroup.Done()
	}
	log.Info("worker terminated")
}

func (w *Watcher) processEvent(ev ScanEvent, s submitter.Submitter) error {
	data, err := os.ReadFile(ev.Path)
	if err != nil {
		return err
	}

	sum := sha512.Sum512(data)
	hash := hex.EncodeToString(sum[:])
	if prev, dberr := scandb.GetScanEntry(hash); dberr == nil && prev.Hashes.Sha512 == hash {
		if time.Since(prev.Time) < w.RescanTimeframe {
			log.Debugf("file %s already scanned at %v, skipping", ev.Path, prev.Time)
			return nil
		}
	}

	fileType := ev.FileType
	if fileType == "" {
		fileType = sniff.ClassifyFile(ev.Path)
	}

	pol := policy.Default()
	if ev.DeepScan || *deep {
		pol = policy.DeepScan()
	}

	// snapshot the shared environment so a concurrent pattern reload
	// does not affect a running scan
	initLock.Lock()
	e := *scanEnv
	initLock.Unlock()

	smp := sample.New(data, fileType, filepath.Base(ev.Path))
	rep, err := registry.ScanSample(&e, smp, pol)
	if err != nil {
		return err
	}

	err = scandb.CreateScanEntry(rep)
	if err != nil {
		log.Error("could not store scan entry: ", err)
	}

	if rep.Suspicious && w.Uploader != nil {
		// the uploader submits the report once the upload is done
		return w.Uploader.Enqueue(rep)
	}

	submitJSON, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return s.Submit(submitJSON)
}

// MakeWatcher returns a new, stopped Watcher. Will emit a value on finishNotify
// channel when finished.
func MakeWatcher(finishNotify chan bool, s submitter.Submitter,
	u *uploader.Uploader, rescanTimeframe time.Duration) *Watcher {
	w := &Watcher{
		IsRunning:         false,
		FinishNotifyChan:  finishNotify,
		ScanCandidateChan: make(chan ScanEvent, 10000),
		Uploader:          u,
		RescanTimeframe:   rescanTimeframe,
	}
	for i := 0; i < numWorkers; i++ {
		go w.fileWorker(s)
	}
	return w
}

// Run starts the watcher on the given socketPath, with files being located in
// the given directory.
func (w *Watcher) Run(directory string, socketPath string) error {
	var err error

	if w.IsRunning {
		return fmt.Errorf("watcher already running")
	}

	w.StartStopLock.Lock()

	w.FileDir = directory
	w.IsRunning = true

	w.SocketInput, err = MakeSocketInput(socketPath, w.ScanCandidateChan,
		w.FileDir, &w.WaitGroup)
	if err != nil {
		w.StartStopLock.Unlock()
		return err
	}

	log.Infof("Watcher running on socket %s, sample directory %s", socketPath, directory)

	w.SocketInput.Run()

	w.StartStopLock.Unlock()

	return nil
}

// Stop causes the watcher to cease reacting to scan events.
func (w *Watcher) Stop() {
	w.StartStopLock.Lock()
	w.SocketInput.Stop(w.FinishNotifyChan)
	w.IsRunning = false
	w.FileDir = "<none>"
	w.StartStopLock.Unlock()
}

// Finish cleans up side effects of a Watcher instance.
func (w *Watcher) Finish() {
	close(w.ScanCandidateChan)
}
