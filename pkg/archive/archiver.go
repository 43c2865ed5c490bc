/*
Copyright (C) 2018 Synopsys, Inc.

Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements. See the NOTICE file
distributed with this work for additional information
regarding copyright ownership. The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License. You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied. See the License for the
specific language governing permissions and limitations
under the License.
*/

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

const (
	reportObjectName      = "report.json"
	applyResultObjectName = "apply-result.json"
	jsonContentType       = "application/json"
)

// ObjectStore is the part of the minio client the archiver uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Archiver copies terminal reports and apply results into an S3
// compatible bucket, one folder per scan:
//   <prefix>/<scan id>/report.json
//   <prefix>/<scan id>/apply-result.json
type S3Archiver struct {
	store  ObjectStore
	bucket string
	region string
	prefix string
}

// NewS3Archiver connects to the configured object storage.
func NewS3Archiver(archiveConfig *config.ArchiveConfig) (*S3Archiver, error) {
	client, err := minio.New(archiveConfig.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(archiveConfig.AccessKey, archiveConfig.SecretKey, ""),
		Secure: archiveConfig.UseSSL,
		Region: archiveConfig.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create object storage client for %s: %w", archiveConfig.Endpoint, err)
	}
	return NewArchiver(client, archiveConfig.Bucket, archiveConfig.Region, archiveConfig.Prefix), nil
}

// NewArchiver .....
func NewArchiver(store ObjectStore, bucket string, region string, prefix string) *S3Archiver {
	return &S3Archiver{store: store, bucket: bucket, region: region, prefix: prefix}
}

// ObjectKey .....
func ObjectKey(prefix string, scanID string, name string) string {
	return path.Join(prefix, scanID, name)
}

// EnsureBucket creates the bucket if it doesn't exist yet.
func (sa *S3Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := sa.store.BucketExists(ctx, sa.bucket)
	if err != nil {
		return fmt.Errorf("unable to check bucket %s: %w", sa.bucket, err)
	}
	if exists {
		return nil
	}
	log.Infof("creating archive bucket %s", sa.bucket)
	err = sa.store.MakeBucket(ctx, sa.bucket, minio.MakeBucketOptions{Region: sa.region})
	if err != nil {
		return fmt.Errorf("unable to create bucket %s: %w", sa.bucket, err)
	}
	return nil
}

// ArchiveReport .....
func (sa *S3Archiver) ArchiveReport(ctx context.Context, report *api.ScanReport) error {
	if report == nil {
		return fmt.Errorf("unable to archive nil report")
	}
	return sa.put(ctx, report.ScanID, reportObjectName, report)
}

// ArchiveApplyResult .....
func (sa *S3Archiver) ArchiveApplyResult(ctx context.Context, scanID string, result *api.ApplyResult) error {
	if result == nil {
		result = &api.ApplyResult{}
	}
	return sa.put(ctx, scanID, applyResultObjectName, result)
}

func (sa *S3Archiver) put(ctx context.Context, scanID string, name string, obj interface{}) error {
	if scanID == "" {
		return fmt.Errorf("unable to archive %s: empty scan id", name)
	}
	body, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to serialize %s of scan %s: %w", name, scanID, err)
	}
	key := ObjectKey(sa.prefix, scanID, name)
	start := time.Now()
	_, err = sa.store.PutObject(ctx, sa.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  jsonContentType,
		UserMetadata: map[string]string{"scan-id": scanID},
	})
	recordArchiveUpload(name, err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("unable to upload %s/%s: %w", sa.bucket, key, err)
	}
	log.Debugf("archived %s/%s (%d bytes)", sa.bucket, key, len(body))
	return nil
}
