package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Deenyoro/SubPrimeDivide/internal/engine"
)

// LevelDB key prefix scheme, adapted from the teacher's memory engine —
// "|" as separator so job IDs (uuids, no pipes) are always unambiguous:
//
//	j|<job_id>                  -> Job JSON
//	l|<job_id>|<seq padded>     -> LogEntry JSON
//	r|<job_id>|<unix nanos padded> -> Result JSON (CreatedAt)
//	f|<digest>                  -> []string JSON (FactorCache)
const (
	prefixJob    = "j|"
	prefixLog    = "l|"
	prefixResult = "r|"
	prefixFactor = "f|"
)

// LevelDB is a goleveldb-backed engine.Store. LevelDB is single-writer, so
// only one process may open a given dbPath at a time.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a LevelDB database at dbPath.
func OpenLevelDB(dbPath string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobstore: failed to open LevelDB at %s: %v\n", dbPath, err)
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Close releases the underlying LevelDB handle.
func (s *LevelDB) Close() error {
	return s.db.Close()
}

func jobKey(id string) []byte { return []byte(prefixJob + id) }

func logKey(jobID string, seq int64) []byte {
	return []byte(fmt.Sprintf("%s%s|%020d", prefixLog, jobID, seq))
}

func resultKey(jobID string, seq int64) []byte {
	return []byte(fmt.Sprintf("%s%s|%020d", prefixResult, jobID, seq))
}

func factorKey(digest string) []byte { return []byte(prefixFactor + digest) }

// putJSON marshals v and writes it under key in a single atomic LevelDB
// write, so readers never observe a partially-written value.
func (s *LevelDB) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("jobstore: marshal: %w", err)
	}
	return s.db.Put(key, data, nil)
}

func (s *LevelDB) CreateJob(ctx context.Context, job *engine.Job) error {
	if _, err := s.db.Get(jobKey(job.ID), nil); err == nil {
		return fmt.Errorf("jobstore: job %s already exists", job.ID)
	}
	return s.putJSON(jobKey(job.ID), job)
}

func (s *LevelDB) UpdateJob(ctx context.Context, job *engine.Job) error {
	return s.putJSON(jobKey(job.ID), job)
}

func (s *LevelDB) GetJob(ctx context.Context, id string) (*engine.Job, error) {
	data, err := s.db.Get(jobKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job engine.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("jobstore: unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (s *LevelDB) ListJobs(ctx context.Context) ([]*engine.Job, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefixJob)), nil)
	defer iter.Release()
	var jobs []*engine.Job
	for iter.Next() {
		var job engine.Job
		if err := json.Unmarshal(iter.Value(), &job); err != nil {
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, iter.Error()
}

func (s *LevelDB) AppendLog(ctx context.Context, entry *engine.LogEntry) error {
	return s.putJSON(logKey(entry.JobID, entry.Sequence), entry)
}

func (s *LevelDB) ListLogs(ctx context.Context, jobID string) ([]*engine.LogEntry, error) {
	prefix := []byte(prefixLog + jobID + "|")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	var logs []*engine.LogEntry
	for iter.Next() {
		var entry engine.LogEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue
		}
		logs = append(logs, &entry)
	}
	return logs, iter.Error()
}

func (s *LevelDB) AppendResult(ctx context.Context, result *engine.Result) error {
	return s.putJSON(resultKey(result.JobID, result.CreatedAt.UnixNano()), result)
}

func (s *LevelDB) ListResults(ctx context.Context, jobID string) ([]*engine.Result, error) {
	prefix := []byte(prefixResult + jobID + "|")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	var results []*engine.Result
	for iter.Next() {
		var result engine.Result
		if err := json.Unmarshal(iter.Value(), &result); err != nil {
			continue
		}
		results = append(results, &result)
	}
	return results, iter.Error()
}

func (s *LevelDB) FactorCacheGet(ctx context.Context, digest string) ([]string, bool, error) {
	data, err := s.db.Get(factorKey(digest), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var factors []string
	if err := json.Unmarshal(data, &factors); err != nil {
		return nil, false, fmt.Errorf("jobstore: unmarshal factor cache %s: %w", digest, err)
	}
	return factors, true, nil
}

func (s *LevelDB) FactorCachePut(ctx context.Context, digest string, factors []string) error {
	return s.putJSON(factorKey(digest), factors)
}

var _ engine.Store = (*LevelDB)(nil)
