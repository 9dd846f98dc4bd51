// Package persistence holds the bucket layout shared by the SQL document
// stores. Each aggregate section is written to its own row of a single
// state(bucket, payload) table inside one transaction.
package persistence

import (
	"encoding/json"
	"fmt"

	"uksledger/pkg/domain"
)

// Bucket names, in write order.
const (
	BucketCredentials = "credentials"
	BucketStudents    = "students"
	BucketMedicines   = "medicines"
	BucketVisits      = "visits"
	BucketScreenings  = "screenings"
)

// Buckets lists every section persisted for an aggregate.
var Buckets = []string{BucketCredentials, BucketStudents, BucketMedicines, BucketVisits, BucketScreenings}

// EncodeBuckets marshals each aggregate section into its bucket payload.
func EncodeBuckets(agg domain.Aggregate) (map[string][]byte, error) {
	agg = agg.Clone()
	out := make(map[string][]byte, len(Buckets))
	for _, bucket := range Buckets {
		var (
			data []byte
			err  error
		)
		switch bucket {
		case BucketCredentials:
			data, err = json.Marshal(agg.Credentials)
		case BucketStudents:
			data, err = json.Marshal(agg.Students)
		case BucketMedicines:
			data, err = json.Marshal(agg.Medicines)
		case BucketVisits:
			data, err = json.Marshal(agg.Visits)
		case BucketScreenings:
			data, err = json.Marshal(agg.Screenings)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds an aggregate from bucket payloads. An empty table
// yields domain.ErrNoDocument; a table missing the credentials or students
// bucket is a malformed document.
func DecodeBuckets(rows map[string][]byte) (domain.Aggregate, error) {
	if len(rows) == 0 {
		return domain.Aggregate{}, domain.ErrNoDocument
	}
	if _, ok := rows[BucketCredentials]; !ok {
		return domain.Aggregate{}, &domain.FormatError{Reason: "missing credentials"}
	}
	if _, ok := rows[BucketStudents]; !ok {
		return domain.Aggregate{}, &domain.FormatError{Reason: "missing students"}
	}
	var agg domain.Aggregate
	targets := map[string]any{
		BucketCredentials: &agg.Credentials,
		BucketStudents:    &agg.Students,
		BucketMedicines:   &agg.Medicines,
		BucketVisits:      &agg.Visits,
		BucketScreenings:  &agg.Screenings,
	}
	for bucket, payload := range rows {
		target, ok := targets[bucket]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return domain.Aggregate{}, &domain.FormatError{Reason: "decode " + bucket, Err: err}
		}
	}
	return agg.Clone(), nil
}
