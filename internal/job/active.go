package job

import (
	"path/filepath"
	"sync"
)

// directories of the jobs in progress in this process
var active = struct {
	sync.Mutex
	dirs map[string]int
}{dirs: map[string]int{}}

func track(dir string) (untrack func()) {
	dir = filepath.Clean(dir)
	active.Lock()
	active.dirs[dir]++
	active.Unlock()
	return func() {
		active.Lock()
		defer active.Unlock()
		if active.dirs[dir]--; active.dirs[dir] <= 0 {
			delete(active.dirs, dir)
		}
	}
}

// Running reports whether dir is the directory of a job which has not
// finished yet
func Running(dir string) bool {
	active.Lock()
	defer active.Unlock()
	return active.dirs[filepath.Clean(dir)] > 0
}
