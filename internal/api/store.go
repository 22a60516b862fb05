package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/geodict/pkg/convert"
)

type conversionRecord struct {
	info Conversion

	// mu serialises Convert calls; a conversion is not safe for concurrent use.
	mu   sync.Mutex
	conv *convert.Conversion
}

// ConversionStore holds the conversions set up through the API.
type ConversionStore struct {
	mu          sync.Mutex
	conversions map[string]*conversionRecord
}

func NewConversionStore() *ConversionStore {
	return &ConversionStore{
		conversions: make(map[string]*conversionRecord),
	}
}

func (s *ConversionStore) Create(conv *convert.Conversion, now time.Time) Conversion {
	info := Conversion{
		ID:        "conv_" + uuid.NewString(),
		Object:    "conversion",
		CreatedAt: now.Unix(),
		Source:    conv.Source,
		Target:    conv.Target,
		Policy:    conv.Policy(),
		Stages:    conv.Stages(),
		Locations: []convert.Coord{},
	}
	s.mu.Lock()
	s.conversions[info.ID] = &conversionRecord{info: info, conv: conv}
	s.mu.Unlock()
	return info
}

func (s *ConversionStore) Get(id string) (*conversionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.conversions[id]
	return rec, ok
}

// Delete removes the conversion and releases it.
func (s *ConversionStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	rec, ok := s.conversions[id]
	delete(s.conversions, id)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return true, rec.conv.Close()
}

func (s *ConversionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversions)
}

// Close releases every conversion.
func (s *ConversionStore) Close() error {
	s.mu.Lock()
	recs := s.conversions
	s.conversions = make(map[string]*conversionRecord)
	s.mu.Unlock()

	var errs []error
	for _, rec := range recs {
		rec.mu.Lock()
		errs = append(errs, rec.conv.Close())
		rec.mu.Unlock()
	}
	return errors.Join(errs...)
}

// snapshot returns the record's description with current soft failure
// locations.
func (r *conversionRecord) snapshot() Conversion {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := r.info
	info.Locations = r.conv.Locations()
	return info
}

func (r *conversionRecord) convert(req ConvertReq) ([]PointResult, convert.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PointResult, len(req.Points))
	worst := convert.StatusOK
	for i, p := range req.Points {
		res, st := r.conv.Convert(p, req.ThreeD)
		out[i] = PointResult{Coord: res, Status: st, StatusText: st.String()}
		switch {
		case st.Hard() && (worst >= 0 || st < worst):
			worst = st
		case st.Soft() && worst >= 0 && st > worst:
			worst = st
		}
	}
	return out, worst
}
