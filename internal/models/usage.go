package models

// UsageDataPoint is one billing/analytics record per dispatched request.
// The blob and double layouts are fixed-width and position-significant:
//
//	blobs:   org_id, tier, method, cache_status, country, continent,
//	         city, region, status_bucket, pathname_bucket
//	doubles: count, latency_ms, req_bytes, resp_bytes
//
// Every blob is drawn from a bounded value set so downstream cardinality
// stays capped no matter what traffic a tenant receives.
type UsageDataPoint struct {
	Indexes []string  `json:"indexes"`
	Blobs   []string  `json:"blobs"`
	Doubles []float64 `json:"doubles"`
}

const (
	BlobOrgID = iota
	BlobTier
	BlobMethod
	BlobCacheStatus
	BlobCountry
	BlobContinent
	BlobCity
	BlobRegion
	BlobStatusBucket
	BlobPathnameBucket

	BlobCount
)

const (
	DoubleCount = iota
	DoubleLatencyMs
	DoubleReqBytes
	DoubleRespBytes

	DoublesCount
)
