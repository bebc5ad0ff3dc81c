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

package main

import (
	"context"
	"strings"
	"time"

	"github.com/aleofreddi/lvmraid/pkg/alloc"
	"github.com/aleofreddi/lvmraid/pkg/lvmctrld"
	"github.com/aleofreddi/lvmraid/pkg/metrics"
	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/aleofreddi/lvmraid/pkg/superblock"
	"github.com/aleofreddi/lvmraid/pkg/vgstore"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
	"k8s.io/utils/exec"
)

// session holds a locked volume group and the engine operating on it.
type session struct {
	opts   *options
	lock   *vgstore.Lock
	store  *vgstore.FileStore
	vg     *raid.VolumeGroup
	engine *raid.Engine
	rec    *metrics.Recorder
	wiper  *superblock.Wiper
}

func (o *options) open(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	lockCtx, cancel := context.WithTimeout(ctx, o.lockTimeout)
	defer cancel()
	lock, err := vgstore.AcquireLock(lockCtx, o.vgFile+".lock")
	if err != nil {
		return nil, err
	}
	store := vgstore.New(o.vgFile, o.archiveDir, o.backupDir)
	vg, err := store.Load()
	if err != nil {
		lock.Release()
		return nil, err
	}

	s := &session{
		opts:  o,
		lock:  lock,
		store: store,
		vg:    vg,
		rec:   metrics.New(),
	}
	var (
		act    raid.Activator
		st     raid.Status
		wipe   raid.Wiper
		prompt = newLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout(), o.yes)
	)
	if o.dryRun {
		klog.Infof("Dry run: live devices of %s are simulated", vg.Name)
		sim := lvmctrld.NewSimulator(vg)
		act, st, wipe = sim, sim, sim
	} else {
		dev := lvmctrld.NewDevices(exec.New(), o.mapperDir)
		s.wiper = superblock.NewWiper(o.mapperDir)
		act, st, wipe = dev, dev, s.wiper
	}
	s.engine = raid.NewEngine(o.cfg, store, act, alloc.New(), st, prompt, wipe)
	return s, nil
}

func (s *session) close() {
	if s.opts.metricsFile != "" {
		s.rec.WriteFile(s.opts.metricsFile)
	}
	if err := s.lock.Release(); err != nil {
		klog.Warningf("%v", err)
	}
}

// lv resolves name, given either as lv or vg/lv.
func (s *session) lv(name string) (*raid.LogicalVolume, error) {
	if vgName, lvName, ok := strings.Cut(name, "/"); ok {
		if vgName != s.vg.Name {
			return nil, status.Errorf(codes.NotFound, "volume group %s not found", vgName)
		}
		name = lvName
	}
	lv := s.vg.FindLV(name)
	if lv == nil {
		return nil, status.Errorf(codes.NotFound, "logical volume %s/%s not found", s.vg.Name, name)
	}
	return lv, nil
}

func layout(lv *raid.LogicalVolume) string {
	if seg := lv.FirstSegment(); seg != nil {
		return seg.Type.Name
	}
	return ""
}

// run executes op on lv, recording its outcome.
func (s *session) run(op string, lv *raid.LogicalVolume, fn func() error) error {
	from, start := layout(lv), time.Now()
	err := fn()
	s.rec.Observe(op, from, layout(lv), start, err)
	if s.vg.LV(lv.ID) == lv {
		s.rec.SetLayout(lv)
	}
	if klog.V(4) {
		klog.Infof("Free extents after %s:\n%s", op, alloc.Dump(s.vg))
	}
	return err
}

// withLV opens a session, resolves the volume named by the first argument
// and runs fn on it.
func (o *options) withLV(cmd *cobra.Command, args []string, fn func(s *session, lv *raid.LogicalVolume) error) error {
	s, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	lv, err := s.lv(args[0])
	if err != nil {
		return err
	}
	return fn(s, lv)
}
