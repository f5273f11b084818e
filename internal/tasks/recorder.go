package tasks

import "time"

// Recorder receives sync measurements. The HTTP server's Prometheus metrics implement it.
type Recorder interface {
	ObserveFetch(outcome FetchOutcome)
	ObserveNewItems(n int)
	ObserveDownload(ok bool)
	ObserveSync(elapsed time.Duration, message string)
	ObserveRun(at time.Time, playlists, failures int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(FetchOutcome)         {}
func (nopRecorder) ObserveNewItems(int)               {}
func (nopRecorder) ObserveDownload(bool)              {}
func (nopRecorder) ObserveSync(time.Duration, string) {}
func (nopRecorder) ObserveRun(time.Time, int, int)    {}
