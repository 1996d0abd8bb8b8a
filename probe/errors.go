package probe

import "errors"

var (
	// ErrNoLivePage is returned when highlight or screenshot is asked of a
	// document that has no browser tab behind it.
	ErrNoLivePage = errors.New("probe: no live page")

	// ErrNoStore is returned by selector and history operations when no
	// database is configured.
	ErrNoStore = errors.New("probe: no store configured")

	// ErrBadRequest marks invalid request parameters.
	ErrBadRequest = errors.New("probe: bad request")

	// ErrFilesDisabled is returned for file sources when fetch.file_root is unset.
	ErrFilesDisabled = errors.New("probe: file sources are disabled")
)
