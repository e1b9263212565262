// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package uploader ships extracted artifacts and their scan reports to
// an S3 endpoint for later inspection.
package uploader

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"regexp"

	"github.com/DCSO/deepstrings/artifacts"
	"github.com/DCSO/deepstrings/report"
	"github.com/DCSO/deepstrings/submitter"

	"github.com/minio/minio-go"
	log "github.com/sirupsen/logrus"
)

// S3Credentials represents a set of data required to access an S3
// resource.
type S3Credentials struct {
	Endpoint        string
	AccessKey       string
	SecretAccessKey string
	BucketName      string
	Region          string
}

// UploadJob contains the report to be shipped together with the
// artifacts extracted during the scan.
type UploadJob struct {
	rep           *report.ScanReport
	artifactList  []artifacts.Record
	localRepoPath string
}

// Uploader is a component that facilitates the queued upload of scan
// results to an S3 endpoint.
type Uploader struct {
	// Creds contains the required credentials for the S3 connection.
	Creds S3Credentials
	// UseSSL is true if SSL should be used for upload.
	UseSSL bool
	// ScratchDir is where queued report JSON files are kept.
	ScratchDir string
	// InChan is the channel to enqueue results for upload.
	InChan chan UploadJob
	// ClosedChan is used to signal uploader shutdown.
	ClosedChan chan bool
	// Client is a Minio client connecting to the given endpoint.
	Client *minio.Client
	// Submitter is used to send reports after upload.
	Submitter submitter.Submitter
}

// Enqueue adds a scan report and its artifacts to the set of results to
// be uploaded. The report JSON is persisted to scratch first so queued
// uploads survive a restart.
func (u *Uploader) Enqueue(rep *report.ScanReport) error {
	reportPath := path.Join(u.ScratchDir, fmt.Sprintf("%s.report.json", rep.Hashes.Sha512))
	outJSON, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	err = os.WriteFile(reportPath, outJSON, 0644)
	if err != nil {
		return err
	}

	u.InChan <- UploadJob{
		rep:           rep,
		artifactList:  rep.Artifacts,
		localRepoPath: reportPath,
	}
	return nil
}

func (u *Uploader) processUpload() {
	for job := range u.InChan {
		reportFileName := fmt.Sprintf("%s.report.json", job.rep.Hashes.Sha512)

		failed := false
		for _, rec := range job.artifactList {
			log.Debugf("bucket %s object '%s' localpath %s", u.Creds.BucketName,
				rec.SHA256, rec.Path)
			size, err := u.Client.FPutObject(u.Creds.BucketName, rec.SHA256,
				rec.Path, minio.PutObjectOptions{
					ContentType: "application/octet-stream",
				})
			if err != nil {
				log.Errorf("upload of artifact %s failed: %s", rec.SHA256, err)
				failed = true
				continue
			}
			log.Infof("successfully uploaded artifact %s (size %d)", rec.SHA256, size)
		}
		if failed {
			continue
		}

		log.Infof("bucket %s object '%s' localpath %s", u.Creds.BucketName,
			reportFileName, job.localRepoPath)
		size, err := u.Client.FPutObject(u.Creds.BucketName, reportFileName,
			job.localRepoPath, minio.PutObjectOptions{
				ContentType: "application/json",
			})
		if err != nil {
			log.Errorf("upload of %s failed: %s", reportFileName, err)
			continue
		}
		log.Infof("successfully uploaded %s (size %d)", reportFileName, size)
		err = os.Remove(job.localRepoPath)
		if err != nil {
			log.Errorf("could not remove uploaded report %s: %s", job.localRepoPath, err)
		}

		// submit the report with the added upload location
		job.rep.Uploaded = true
		job.rep.UploadLocation = fmt.Sprintf("%s/%s/%s", u.Creds.Endpoint,
			u.Creds.BucketName, job.rep.Hashes.Sha512)
		if u.Submitter != nil {
			submitJSON, err := json.Marshal(job.rep)
			if err != nil {
				log.Error(err)
			} else {
				u.Submitter.Submit(submitJSON)
			}
		}
	}
	close(u.ClosedChan)
}

func (u *Uploader) enqueueBacklog() error {
	re := regexp.MustCompile(`.+\.report\.json$`)
	files, err := os.ReadDir(u.ScratchDir)
	if err != nil {
		return err
	}

	for _, f := range files {
		if !re.MatchString(f.Name()) {
			continue
		}
		var rep report.ScanReport
		byteValue, err := os.ReadFile(path.Join(u.ScratchDir, f.Name()))
		if err != nil {
			return err
		}
		err = json.Unmarshal(byteValue, &rep)
		if err != nil {
			return err
		}
		log.Debugf("enqueuing scratch report %s, %d bytes", f.Name(), len(byteValue))
		u.InChan <- UploadJob{
			rep:           &rep,
			artifactList:  rep.Artifacts,
			localRepoPath: path.Join(u.ScratchDir, f.Name()),
		}
	}

	return nil
}

// MakeS3Uploader returns a new Uploader for the given credentials and
// environment settings. If a submitter is given, it will be used to
// submit the report for each uploaded result as well.
func MakeS3Uploader(creds S3Credentials, ssl bool, scratchdir string,
	submitter submitter.Submitter) (*Uploader, error) {
	uploader := &Uploader{
		Creds:      creds,
		UseSSL:     ssl,
		ScratchDir: scratchdir,
		ClosedChan: make(chan bool),
		InChan:     make(chan UploadJob, 10000),
		Submitter:  submitter,
	}

	client, err := minio.New(creds.Endpoint, creds.AccessKey, creds.SecretAccessKey, ssl)
	if err != nil {
		return nil, err
	}
	uploader.Client = client

	err = uploader.enqueueBacklog()
	if err != nil {
		return nil, err
	}

	go uploader.processUpload()

	return uploader, nil
}

// Stop causes the uploader to cease processing enqueued results.
func (u *Uploader) Stop() {
	close(u.InChan)
	<-u.ClosedChan
}
