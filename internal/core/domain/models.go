package domain

import "time"

// ContentKind classifies what a TikTok URL points at.
type ContentKind string

const (
	KindVideo     ContentKind = "video"
	KindSlideshow ContentKind = "slideshow"
	KindUnknown   ContentKind = "unknown"
)

// URLInfo is the result of classifying a TikTok URL.
type URLInfo struct {
	RawURL      string      `json:"raw_url"`
	ResolvedURL string      `json:"resolved_url"`
	VideoID     string      `json:"video_id"`
	Kind        ContentKind `json:"kind"`
}

// Cookie is a single browser cookie as exported by the automation layer.
// Field names follow the browser export format; expirationDate is accepted
// as an alias for expires when loading older profile files.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  int64   `json:"expires"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	ExpDate  float64 `json:"expirationDate,omitempty"`
}

// Expiry returns the cookie's expiry as unix seconds, preferring the
// expirationDate alias when Expires is unset. Zero means a session cookie.
func (c Cookie) Expiry() int64 {
	if c.Expires != 0 {
		return c.Expires
	}
	if c.ExpDate > 0 {
		return int64(c.ExpDate)
	}
	return 0
}

// Expired reports whether the cookie has a past expiry. Session cookies
// (expiry zero) never report expired.
func (c Cookie) Expired(now time.Time) bool {
	exp := c.Expiry()
	return exp > 0 && time.Unix(exp, 0).Before(now)
}

// ProfileStatus is the outcome of verifying a cookie profile.
type ProfileStatus string

const (
	ProfileValid   ProfileStatus = "valid"
	ProfileInvalid ProfileStatus = "invalid"
	ProfileExpired ProfileStatus = "expired"
)

// JobState is the terminal state of a download job.
type JobState string

const (
	JobSuccess JobState = "success"
	JobPartial JobState = "partial"
	JobFailed  JobState = "failed"
)

// Job describes a single download invocation. Jobs are ephemeral; they
// live only for the duration of one CLI run.
type Job struct {
	ID          string      `json:"job_id"`
	URL         string      `json:"url"`
	Kind        ContentKind `json:"kind"`
	DestDir     string      `json:"dest_dir"`
	Concurrency int         `json:"concurrency"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ImageResult records the outcome of one slideshow image download.
type ImageResult struct {
	URL      string `json:"url"`
	Path     string `json:"path,omitempty"`
	Checksum string `json:"checksum,omitempty"`
	Err      error  `json:"-"`
}

// JobResult holds the outcome of a completed job.
type JobResult struct {
	Job         Job
	State       JobState
	VideoPath   string
	Images      []ImageResult
	ErrorMsg    string
	CompletedAt time.Time
}

// Succeeded returns how many images downloaded successfully.
func (r *JobResult) Succeeded() int {
	n := 0
	for _, img := range r.Images {
		if img.Err == nil {
			n++
		}
	}
	return n
}
