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

package superblock

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/ncw/directio"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

const DefaultMapperDir = "/dev/mapper"

// Wiper zeroes the first block of active component devices below
// MapperDir.
type Wiper struct {
	MapperDir string
}

func NewWiper(mapperDir string) *Wiper {
	return &Wiper{MapperDir: mapperDir}
}

// Path returns the device node of lv.
func (w *Wiper) Path(lv *raid.LogicalVolume) string {
	return filepath.Join(w.MapperDir, lv.DMName())
}

func (w *Wiper) WipeFirstSector(ctx context.Context, lv *raid.LogicalVolume) error {
	if err := ctx.Err(); err != nil {
		return status.Errorf(codes.Aborted, "interrupted: %v", err)
	}
	path := w.Path(lv)
	f, err := directio.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return status.Errorf(codes.Unavailable, "failed to open %s for wiping: %v", path, err)
	}
	defer f.Close()
	if err := zero(f); err != nil {
		return status.Errorf(codes.Unavailable, "failed to wipe %s: %v", path, err)
	}
	klog.V(2).Infof("Wiped first sector of %s", path)
	return nil
}

func zero(dev interface {
	WriteAt([]byte, int64) (int, error)
}) error {
	_, err := dev.WriteAt(directio.AlignedBlock(directio.BlockSize), 0)
	return err
}

// CountAll returns the failed device count recorded by each metadata
// device of lv, in image order.
func (w *Wiper) CountAll(ctx context.Context, lv *raid.LogicalVolume) ([]uint32, error) {
	metas := raid.MetaImages(lv)
	counts := make([]uint32, len(metas))
	g, _ := errgroup.WithContext(ctx)
	for i, m := range metas {
		i, path := i, w.Path(m)
		g.Go(func() error {
			n, err := CountFailedDevices(path)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// ClearAll resets the failed devices recorded on every metadata device of
// lv. The devices must not be in use by an active mapping.
func (w *Wiper) ClearAll(ctx context.Context, lv *raid.LogicalVolume) error {
	g, _ := errgroup.WithContext(ctx)
	for _, m := range raid.MetaImages(lv) {
		path := w.Path(m)
		g.Go(func() error {
			_, err := ClearFailedDevices(path)
			return err
		})
	}
	return g.Wait()
}
