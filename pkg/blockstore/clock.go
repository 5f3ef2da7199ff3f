package blockstore

import "time"

// nowFunc is the fill-timestamp source; overridable in tests.
var nowFunc = func() int64 {
	return time.Now().UnixNano()
}
