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

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mathenaangeles/Dispatch/pkg/api"
	log "github.com/sirupsen/logrus"
)

// Execer is the part of pgx the store uses; *pgxpool.Pool and pgx.Tx
// satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Store keeps an audit trail of scans, review decisions and patch
// applications in Postgres.
type Store struct {
	db   Execer
	pool *pgxpool.Pool
}

// Open connects to Postgres and checks the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// NewStore .....
func NewStore(db Execer) *Store {
	return &Store{db: db}
}

// Close .....
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS dispatch_scans (
		scan_id       text PRIMARY KEY,
		repo_url      text NOT NULL,
		branch        text NOT NULL,
		status        text NOT NULL,
		error_msg     text,
		finding_count integer NOT NULL DEFAULT 0,
		high_severity integer NOT NULL DEFAULT 0,
		elapsed_ms    bigint NOT NULL DEFAULT 0,
		report        jsonb,
		finished_at   timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dispatch_decisions (
		id         bigserial PRIMARY KEY,
		scan_id    text NOT NULL,
		finding_id text NOT NULL,
		decision   text NOT NULL,
		decided_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS dispatch_decisions_scan_id ON dispatch_decisions (scan_id)`,
	`CREATE TABLE IF NOT EXISTS dispatch_applies (
		id         bigserial PRIMARY KEY,
		scan_id    text NOT NULL,
		succeeded  boolean NOT NULL,
		error_msg  text,
		result     jsonb,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the history tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := s.db.Exec(ctx, statement); err != nil {
			return fmt.Errorf("unable to create history schema: %w", err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, name string, sql string, args ...any) error {
	start := time.Now()
	_, err := s.db.Exec(ctx, sql, args...)
	recordQuery(name, err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("unable to %s: %w", name, err)
	}
	return nil
}

// RecordScan stores a terminal scan.  Recording the same scan again
// replaces the earlier row.
func (s *Store) RecordScan(ctx context.Context, request api.ScanRequest, report *api.ScanReport, elapsed time.Duration) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("unable to serialize report of scan %s: %w", report.ScanID, err)
	}
	status := "complete"
	var errorMsg *string
	if report.IsFailed() {
		status = "failed"
	}
	if report.IsError() {
		errorMsg = &report.Error
	}
	log.Debugf("recording scan %s (%s)", report.ScanID, status)
	return s.exec(ctx, "recordScan", `
		INSERT INTO dispatch_scans (scan_id, repo_url, branch, status, error_msg, finding_count, high_severity, elapsed_ms, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (scan_id) DO UPDATE
		SET status=EXCLUDED.status, error_msg=EXCLUDED.error_msg,
		    finding_count=EXCLUDED.finding_count, high_severity=EXCLUDED.high_severity,
		    elapsed_ms=EXCLUDED.elapsed_ms, report=EXCLUDED.report, finished_at=now()
	`, report.ScanID, request.RepoURL, request.Branch, status, errorMsg,
		len(report.Findings), report.Stats.HighSeverity, elapsed.Milliseconds(), string(body))
}

// RecordDecision stores an acknowledged review decision.
func (s *Store) RecordDecision(ctx context.Context, scanID string, findingID api.FindingID, decision api.ReviewDecision) error {
	return s.exec(ctx, "recordDecision", `
		INSERT INTO dispatch_decisions (scan_id, finding_id, decision)
		VALUES ($1, $2, $3)
	`, scanID, findingID.String(), decision.String())
}

// RecordApply stores the outcome of a patch application, failed or not.
func (s *Store) RecordApply(ctx context.Context, scanID string, result *api.ApplyResult, applyErr error) error {
	var errorMsg *string
	var body *string
	if applyErr != nil {
		msg := applyErr.Error()
		errorMsg = &msg
	}
	if result != nil {
		bytes, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("unable to serialize apply result of scan %s: %w", scanID, err)
		}
		str := string(bytes)
		body = &str
	}
	return s.exec(ctx, "recordApply", `
		INSERT INTO dispatch_applies (scan_id, succeeded, error_msg, result)
		VALUES ($1, $2, $3, $4::jsonb)
	`, scanID, applyErr == nil, errorMsg, body)
}
