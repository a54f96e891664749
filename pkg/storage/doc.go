// Package storage writes slide captures to disk.
//
// Each run gets one date-bucketed directory (base/YYYY-MM-DD) chosen when the
// Manager is created. Slides are named by their 1-based index, zero-padded to
// three digits (001.png, 002.png, ...). Files are written to a temporary name
// and renamed into place, and rejected captures are removed with Discard.
//
//	manager, err := storage.NewManager("./pics", "2006-01-02", time.Now())
//	path, err := manager.SaveSlide(0, bytes.NewReader(png))
//	if !valid {
//	    manager.Discard(path)
//	}
package storage
