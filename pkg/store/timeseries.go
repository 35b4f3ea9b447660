package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Point is one (timestamp, value) sample of a time series. Timestamps
// are unique per series; the series is always materialized in ascending
// timestamp order regardless of insertion order.
type Point struct {
	Timestamp int64
	Value     any
}

// rawPoint carries the pipeline-encoded value so per-value encryption
// holds while timestamps stay readable for ordering.
type rawPoint struct {
	T int64  `json:"t"`
	V []byte `json:"v"`
}

// seriesBlob is the single physical value a whole series is stored as,
// keeping every Extend an atomic one-key rewrite.
type seriesBlob struct {
	Points []rawPoint `json:"points"`
}

func (s *Store) loadSeries(key string) (*seriesBlob, bool, error) {
	data, err := s.backend.Get(s.physicalKey(tagTS, key))
	if err != nil {
		if isBackendNotFound(err) {
			return &seriesBlob{}, false, nil
		}
		return nil, false, backendErr("get", key, err)
	}
	var blob seriesBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, false, fmt.Errorf("%w: series blob: %w", ErrDecode, err)
	}
	return &blob, true, nil
}

func (s *Store) saveSeries(key string, blob *seriesBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal series blob: %w", err)
	}
	if err := s.backend.Put(s.physicalKey(tagTS, key), data); err != nil {
		return backendErr("put", key, err)
	}
	return nil
}

// Extend merges data points into the stored series by timestamp. A point
// whose timestamp is already present overwrites the stored one (last
// write wins). The rewrite of the series blob is a single physical put.
func (s *Store) Extend(key string, points ...Point) error {
	if err := s.writable(); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	blob, _, err := s.loadSeries(key)
	if err != nil {
		return err
	}

	merged := make(map[int64][]byte, len(blob.Points)+len(points))
	for _, p := range blob.Points {
		merged[p.T] = p.V
	}
	for _, p := range points {
		data, err := s.encodeValue(p.Value)
		if err != nil {
			return err
		}
		merged[p.Timestamp] = data
	}

	timestamps := make([]int64, 0, len(merged))
	for t := range merged {
		timestamps = append(timestamps, t)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	blob.Points = blob.Points[:0]
	for _, t := range timestamps {
		blob.Points = append(blob.Points, rawPoint{T: t, V: merged[t]})
	}
	return s.saveSeries(key, blob)
}

// Range returns the points with timestamps in [start, end], in ascending
// order. An absent series yields an empty result, not an error.
func (s *Store) Range(key string, start, end int64) ([]Point, error) {
	return s.RangeN(key, start, end, 0, 0)
}

// RangeN is Range with optional subsampling: when n > 0 at most n points
// are returned; when freq > 0 points closer than freq to the previously
// returned one are skipped.
func (s *Store) RangeN(key string, start, end int64, n int, freq int64) ([]Point, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if end < start {
		return nil, nil
	}

	blob, _, err := s.loadSeries(key)
	if err != nil {
		return nil, err
	}

	var found []Point
	var step int64
	for _, p := range blob.Points {
		if p.T < start || p.T > end {
			continue
		}
		if freq > 0 && len(found) > 0 && p.T < step {
			continue
		}
		value, err := s.decodeValue(p.V)
		if err != nil {
			return nil, err
		}
		found = append(found, Point{Timestamp: p.T, Value: value})
		if n > 0 && len(found) == n {
			break
		}
		step = p.T + freq
	}
	return found, nil
}

// First returns the oldest data point, or ErrNotFound for an absent or
// empty series.
func (s *Store) First(key string) (Point, error) {
	return s.edgePoint(key, false)
}

// Last returns the most recent data point, or ErrNotFound for an absent
// or empty series.
func (s *Store) Last(key string) (Point, error) {
	return s.edgePoint(key, true)
}

func (s *Store) edgePoint(key string, last bool) (Point, error) {
	if err := s.readable(); err != nil {
		return Point{}, err
	}

	blob, _, err := s.loadSeries(key)
	if err != nil {
		return Point{}, err
	}
	if len(blob.Points) == 0 {
		return Point{}, ErrNotFound
	}

	raw := blob.Points[0]
	if last {
		raw = blob.Points[len(blob.Points)-1]
	}
	value, err := s.decodeValue(raw.V)
	if err != nil {
		return Point{}, err
	}
	return Point{Timestamp: raw.T, Value: value}, nil
}

// Missing enumerates the expected-but-absent timestamps on the grid
// start, start+freq, ..., end. With freq <= 0 no grid is expected and
// the result is empty.
func (s *Store) Missing(key string, freq, start, end int64) ([]int64, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	if freq <= 0 {
		return nil, nil
	}

	blob, _, err := s.loadSeries(key)
	if err != nil {
		return nil, err
	}

	present := make(map[int64]struct{}, len(blob.Points))
	for _, p := range blob.Points {
		present[p.T] = struct{}{}
	}

	var missing []int64
	for t := start; t <= end; t += freq {
		if _, ok := present[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// IsComplete reports whether no expected data point is missing in
// [start, end] for the given frequency.
func (s *Store) IsComplete(key string, freq, start, end int64) (bool, error) {
	missing, err := s.Missing(key, freq, start, end)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// Remove deletes the whole series. Returns ErrNotFound when absent.
func (s *Store) Remove(key string) error {
	if err := s.writable(); err != nil {
		return err
	}

	physical := s.physicalKey(tagTS, key)
	ok, err := s.backend.Has(physical)
	if err != nil {
		return backendErr("has", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := s.backend.Delete(physical); err != nil {
		return backendErr("delete", key, err)
	}
	return nil
}

// RemoveRange deletes the points with timestamps in [start, end]. An
// absent series is a no-op; a series emptied by the removal is dropped
// entirely.
func (s *Store) RemoveRange(key string, start, end int64) error {
	if err := s.writable(); err != nil {
		return err
	}

	blob, exists, err := s.loadSeries(key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	kept := blob.Points[:0]
	for _, p := range blob.Points {
		if p.T >= start && p.T <= end {
			continue
		}
		kept = append(kept, p)
	}
	blob.Points = kept

	if len(blob.Points) == 0 {
		if err := s.backend.Delete(s.physicalKey(tagTS, key)); err != nil {
			return backendErr("delete", key, err)
		}
		return nil
	}
	return s.saveSeries(key, blob)
}

// Timeseries lists all series keys in the namespace.
func (s *Store) Timeseries() ([]string, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	return s.scanLogicalKeys(tagTS)
}
