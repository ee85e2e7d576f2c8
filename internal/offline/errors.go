package offline

import "errors"

var (
	// ErrStorageUnavailable means the host has no usable local persistence.
	// Fatal to the whole subsystem; surfaced at initialization.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrDownloadInProgress is returned for a duplicate download request
	// while one is already in flight for the same tour. No state changes.
	ErrDownloadInProgress = errors.New("download already in progress")

	// ErrTourNotFound is returned by the tour-data API when the requested
	// tour does not exist remotely.
	ErrTourNotFound = errors.New("tour not found")

	// ErrTourFetchFailed means the remote tour graph could not be fetched.
	ErrTourFetchFailed = errors.New("tour fetch failed")

	// ErrDownloadFailed wraps the first asset failure that aborted a
	// download. The tour is marked failed and can be downloaded again.
	ErrDownloadFailed = errors.New("tour download failed")
)
