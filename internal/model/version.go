package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// VersionStamp records when an aggregation run happened.
// It is regenerated on every run.
type VersionStamp struct {
	CreationDate time.Time
}

// NewVersionStamp returns a stamp for t normalised to UTC.
func NewVersionStamp(t time.Time) VersionStamp {
	return VersionStamp{CreationDate: t.UTC()}
}

// versionFile is the on-disk form of VersionStamp.
type versionFile struct {
	CreationDate string `json:"CREATION_DATE"`
}

// MarshalJSON writes {"CREATION_DATE": "<RFC 3339 UTC>"}.
func (v VersionStamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(versionFile{CreationDate: v.CreationDate.UTC().Format(time.RFC3339)})
}

// UnmarshalJSON parses the form written by MarshalJSON.
func (v *VersionStamp) UnmarshalJSON(data []byte) error {
	var f versionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, f.CreationDate)
	if err != nil {
		return fmt.Errorf("invalid CREATION_DATE %q: %w", f.CreationDate, err)
	}
	v.CreationDate = t.UTC()
	return nil
}

// String returns the RFC 3339 UTC form.
func (v VersionStamp) String() string {
	return v.CreationDate.UTC().Format(time.RFC3339)
}
