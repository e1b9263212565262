// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package main

import (
	"flag"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"sync"
	"syscall"
	"time"

	"github.com/DCSO/deepstrings/artifacts"
	"github.com/DCSO/deepstrings/bbcrack"
	"github.com/DCSO/deepstrings/patterns"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/scandb"
	"github.com/DCSO/deepstrings/sniff"
	"github.com/DCSO/deepstrings/submitter"
	"github.com/DCSO/deepstrings/uploader"

	// Scan pipelines are registered using the following imports
	_ "github.com/DCSO/deepstrings/pipelines/base64scan"
	_ "github.com/DCSO/deepstrings/pipelines/hexscan"
	_ "github.com/DCSO/deepstrings/pipelines/pescan"
	_ "github.com/DCSO/deepstrings/pipelines/plainscan"
	_ "github.com/DCSO/deepstrings/pipelines/unicodescan"
	_ "github.com/DCSO/deepstrings/pipelines/xorscan"

	"github.com/NeowayLabs/wabbit"
	"github.com/NeowayLabs/wabbit/amqp"
	"github.com/NeowayLabs/wabbit/amqptest"
	log "github.com/sirupsen/logrus"
)

var (
	// testMode is used to invoke some automatic testing behaviour in main()
	testMode bool
	testDir  string

	// stopChan is used to notify the reader of a completed main()
	stopChan chan bool

	// SigChan is a channel receiving os.Signal instances to control runtime behaviour
	sigChan       = make(chan os.Signal, 1)
	sigChanClosed = make(chan bool)

	// initLock is a mutex protecting the critical section of pattern reloading
	initLock sync.Mutex

	// scanEnv bundles the collaborators shared by the scan workers
	scanEnv *registry.Env

	// deep enables the more expensive scan settings for all samples
	deep = flag.Bool("deep", false, "Use deep scan settings for all samples")

	patternFile = flag.String("patternfile", "", "Path to extra IOC pattern file")
	patternURI  = flag.String("pattern-uri", "", "URI to fetch extra IOC pattern file from")
	patternXz   = flag.Bool("patternxz", false, "Extra IOC pattern file is xz-compressed")
)

func testWrapper(testdir string, stopNotify chan bool) {
	testMode = true
	testDir = testdir
	stopChan = make(chan bool)
	go main()
	<-stopChan
	testMode = false
	close(stopNotify)
}

// InitializePatterns rebuilds the IOC pattern matcher, merging in the
// extra pattern file if one is configured.
func InitializePatterns() {
	initLock.Lock()
	m := patterns.NewMatcher()
	if *patternFile != "" || *patternURI != "" {
		err := m.LoadExtra(*patternFile, *patternURI, *patternXz)
		if err != nil {
			log.Fatalf("Error initializing patterns: %v", err)
		}
	}
	scanEnv.Patterns = m
	log.Infof("[%v] patterns successfully initialized", m.NumPatterns())
	initLock.Unlock()
}

func main() {
	var err error
	var s submitter.Submitter
	var u *uploader.Uploader
	var sockPath = flag.String("socket", "/tmp/deepstrings.sock", "Path for scan event input socket")
	var samplesDir = flag.String("dir", "/var/spool/deepstrings/samples", "Directory where samples to scan are located")
	var logPath = flag.String("log", "/var/log/", "Path for deepstrings log files")
	var dataPath = flag.String("data", "/var/lib/deepstrings/", "Path for the scan database")
	var artifactDir = flag.String("artifactdir", "/var/lib/deepstrings/artifacts", "Scratch directory for extracted artifacts")
	var rescanTimeframe = flag.Duration("rescan", 24*7*time.Hour, "Timeframe in which an already scanned sample is not rescanned")
	var amqpURI = flag.String("amqpuri", "localhost:5672", "Endpoint and port for the AMQP connection")
	var amqpExchange = flag.String("amqpexch", "deepstrings", "Exchange to post messages to")
	var amqpUser = flag.String("amqpuser", "sensor", "User name for the AMQP connection")
	var amqpPass = flag.String("amqppass", "sensor", "Password for the AMQP connection")
	var dummy = flag.Bool("dummy", false, "Log reports to file instead of submitting to AMQP")
	var profileFile = flag.String("proffile", "", "Dump profiling information to file")
	var memProfileFile = flag.String("mproffile", "", "Dump memory profiling information to file")
	var uploadEndpoint = flag.String("uploadendpoint", "", "Endpoint for artifact S3 upload")
	var uploadAccessKey = flag.String("uploadaccesskey", "", "Access key for S3 upload")
	var uploadSecretAccessKey = flag.String("uploadsecretaccesskey", "", "Secret access key for S3 upload")
	var uploadBucketName = flag.String("uploadbucket", "", "Bucket name for S3 upload")
	var uploadRegion = flag.String("uploadregion", "", "Region for S3 upload")
	var uploadScratchDir = flag.String("uploadscratchdir", "/tmp/deepstrings_scratch", "Temp directory for S3 upload")
	var uploadSSL = flag.Bool("uploadssl", false, "Use SSL for S3 upload")
	var profSrv = flag.Bool("profsrv", false, "Enable profiling server on port 6060")
	var verbose = flag.Bool("verbose", false, "Verbose output")
	var logJSON = flag.Bool("logjson", false, "JSON log output")
	flag.Parse()

	// Use temporary test directories
	if testMode {
		*logPath = testDir
		*dataPath = filepath.Join(testDir, "db")
		*samplesDir = filepath.Join(testDir, "files")
		*artifactDir = filepath.Join(testDir, "artifacts")
		*amqpExchange = "deepstrings"
		*amqpURI = "localhost:9999/%2f"
		*sockPath = filepath.Join(testDir, "scan.sock")
	}

	// Configure logging to file
	if len(*logPath) > 0 || testMode {
		if _, err = os.Stat(*logPath); os.IsNotExist(err) {
			log.Infof("Log directory %s does not exist, trying to create it", *logPath)
			err = os.MkdirAll(*logPath, os.ModePerm)
			if err != nil {
				log.Fatal(err)
			}
		}
		f, myerr := os.OpenFile(filepath.Join(*logPath, "deepstrings.log"),
			os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if myerr != nil {
			log.Fatal(myerr)
		}
		defer func() {
			f.Close()
			log.SetOutput(os.Stdout)
		}()
		log.SetOutput(f)
	}

	if *logJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}

	if *verbose {
		log.Info("verbose log output enabled")
		log.SetLevel(log.DebugLevel)
	}

	// Optional profiling
	if *profileFile != "" {
		var f io.Writer
		f, err = os.Create(*profileFile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *profSrv && !testMode {
		go func() {
			log.Println(http.ListenAndServe("localhost:6060", nil))
		}()
	}

	// Create submitter
	if *dummy {
		log.Info("disabling report submission")
		s = submitter.MakeDummySubmitter()
	} else {
		s, err = submitter.MakeAMQPSubmitterWithReconnector(*amqpURI, *amqpUser, *amqpPass,
			*amqpExchange, *verbose, func(url string) (wabbit.Conn, string, error) {
				log.Info(url)
				if testMode {
					c, e := amqptest.Dial(url)
					return c, "direct", e
				}
				c, e := amqp.Dial(url)
				return c, "fanout", e
			})
		if err != nil {
			log.Fatal(err)
		}
	}
	defer s.Finish()

	// Create uploader
	if len(*uploadEndpoint) > 0 {
		err = os.MkdirAll(*uploadScratchDir, os.ModePerm)
		if err != nil {
			log.Fatal(err)
		}
		u, err = uploader.MakeS3Uploader(uploader.S3Credentials{
			Endpoint:        *uploadEndpoint,
			AccessKey:       *uploadAccessKey,
			SecretAccessKey: *uploadSecretAccessKey,
			BucketName:      *uploadBucketName,
			Region:          *uploadRegion,
		}, *uploadSSL, *uploadScratchDir, s)
		if err != nil {
			log.Fatal(err)
		}
	}

	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range sigChan {
			log.Infof("received signal %v, no handler set up yet", sig)
		}
		close(sigChanClosed)
	}()

	// Setup database connection and create the database file if not exist
	if _, err = os.Stat(*dataPath); os.IsNotExist(err) {
		log.Infof("Database directory %s does not exist, trying to create it", *dataPath)
		os.MkdirAll(*dataPath, os.ModePerm)
	}
	err = scandb.InitDB(*dataPath)
	if err != nil {
		log.Fatal(err)
	}
	defer scandb.CloseDB()

	// Open the artifact store and assemble the scan environment
	store, err := artifacts.NewStore(*artifactDir)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	scanEnv = &registry.Env{
		Store:   store,
		Sniffer: sniff.NewMagic(),
		Cracker: &bbcrack.BruteForcer{},
	}
	InitializePatterns()

	// Prepare watcher
	finishNotify := make(chan bool)
	w := MakeWatcher(finishNotify, s, u, *rescanTimeframe)
	w.backlogBuilder(*samplesDir)

	janitorNotify := make(chan bool)
	j := MakeJanitor(janitorNotify)

	// Clear previous stub handler
	signal.Reset()
	close(sigChan)
	<-sigChanClosed
	sigChan = make(chan os.Signal, 1)

	// Register live handlers
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP,
		syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
	SigLoop:
		for {
			sig := <-sigChan
			switch sig {
			case syscall.SIGHUP:
				// reload IOC patterns
				log.Info("Received SIGHUP, reinitializing patterns")
				InitializePatterns()
			case syscall.SIGUSR1:
				log.Info("Received SIGUSR1, rescanning", *samplesDir)
				w.backlogBuilder(*samplesDir)
			case syscall.SIGUSR2:
				log.Info("Received SIGUSR2, rescanning from scratch", *samplesDir)
				scandb.CloseDB()
				err = os.Remove(filepath.Join(*dataPath, scandb.DatabaseName))
				if err != nil {
					log.Fatal(err)
				}
				err = scandb.InitDB(*dataPath)
				if err != nil {
					log.Fatal(err)
				}
				w.backlogBuilder(*samplesDir)
			case os.Interrupt, syscall.SIGTERM:
				log.Info("Received request to stop, stopping janitor and watcher...")
				if len(*uploadEndpoint) > 0 {
					u.Stop()
				}
				w.Finish()
				w.Stop()
				j.Stop()
				break SigLoop
			}
		}
	}()

	// start accepting scan events...
	err = w.Run(*samplesDir, *sockPath)
	if err != nil {
		log.Fatal(err)
	}
	j.Run(*artifactDir)

	// ...until the watcher is stopped
	<-finishNotify
	<-janitorNotify

	log.Info("stopped janitor and watcher")

	if testMode {
		close(stopChan)
	}

	if *memProfileFile != "" {
		f, err := os.Create(*memProfileFile)
		if err != nil {
			log.Fatal("could not create memory profile: ", err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
		f.Close()
	}
}
