// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vgstore

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

const lockRetryInterval = 100 * time.Millisecond

// Lock is an exclusive advisory lock on a volume group.
type Lock struct {
	f *os.File
}

// AcquireLock takes the lock file at path, waiting for a concurrent holder
// until ctx expires.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to open lock %s: %v", path, err)
	}
	logged := false
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			klog.V(4).Infof("Acquired lock %s", path)
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, status.Errorf(codes.Unavailable, "failed to lock %s: %v", path, err)
		}
		if !logged {
			klog.Infof("Waiting for lock %s", path)
			logged = true
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, status.Errorf(codes.DeadlineExceeded, "timed out waiting for lock %s", path)
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *Lock) Release() error {
	defer l.f.Close()
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		return status.Errorf(codes.Unavailable, "failed to unlock %s: %v", l.f.Name(), err)
	}
	klog.V(4).Infof("Released lock %s", l.f.Name())
	return nil
}
