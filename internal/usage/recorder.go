package usage

import (
	"net/http"
	"time"

	"github.com/nimbusdeck/edge/internal/models"
)

const unknown = "unknown"

// ResponseInfo carries the response-side inputs for a data point.
type ResponseInfo struct {
	StatusCode   int
	Header       http.Header
	BytesWritten int64
}

// BuildDataPoint assembles the usage record for one dispatched request. It is
// pure: no clock reads, no I/O, and it cannot fail — missing inputs degrade
// to "unknown" or zero.
func BuildDataPoint(req *http.Request, resp ResponseInfo, tenant *models.TenantConfig, latency time.Duration) models.UsageDataPoint {
	blobs := make([]string, models.BlobCount)
	blobs[models.BlobOrgID] = orDefault(tenant.OrgID, unknown)
	blobs[models.BlobTier] = orDefault(tenant.Tier, unknown)
	blobs[models.BlobMethod] = orDefault(req.Method, unknown)
	blobs[models.BlobCacheStatus] = cacheStatus(resp.Header.Get("X-Cache-Status"))
	blobs[models.BlobCountry] = geoHeader(req, "X-Geo-Country")
	blobs[models.BlobContinent] = geoHeader(req, "X-Geo-Continent")
	blobs[models.BlobCity] = geoHeader(req, "X-Geo-City")
	blobs[models.BlobRegion] = geoHeader(req, "X-Geo-Region")
	blobs[models.BlobStatusBucket] = statusBucket(resp.StatusCode)
	blobs[models.BlobPathnameBucket] = pathnameBucket(req.URL.Path)

	doubles := make([]float64, models.DoublesCount)
	doubles[models.DoubleCount] = 1
	doubles[models.DoubleLatencyMs] = float64(latency.Milliseconds())
	doubles[models.DoubleReqBytes] = float64(max64(req.ContentLength, 0))
	doubles[models.DoubleRespBytes] = float64(max64(resp.BytesWritten, 0))

	return models.UsageDataPoint{
		Indexes: []string{tenant.ProjectID.String()},
		Blobs:   blobs,
		Doubles: doubles,
	}
}

func geoHeader(req *http.Request, name string) string {
	return orDefault(req.Header.Get(name), unknown)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func max64(v, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}
