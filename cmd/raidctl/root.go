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
	"flag"
	"time"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/aleofreddi/lvmraid/pkg/superblock"
	"github.com/spf13/cobra"
	"k8s.io/klog"
)

type options struct {
	cfg         raid.Config
	vgFile      string
	archiveDir  string
	backupDir   string
	metricsFile string
	mapperDir   string
	lockTimeout time.Duration
	yes         bool
	force       bool
	dryRun      bool
}

func newOptions() *options {
	return &options{
		cfg:         raid.DefaultConfig(),
		mapperDir:   superblock.DefaultMapperDir,
		lockTimeout: 30 * time.Second,
	}
}

func newRootCommand(goFlags *flag.FlagSet) *cobra.Command {
	o := newOptions()
	cmd := &cobra.Command{
		Use:           "raidctl",
		Short:         "Convert, reshape and repair raid logical volumes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			klog.V(2).Infof("Starting raidctl %s (%s)", version, commit)
		},
	}

	f := cmd.PersistentFlags()
	f.Uint32Var(&o.cfg.RegionSize, "region-size", o.cfg.RegionSize, "default region size in sectors")
	f.Uint32Var(&o.cfg.StripeSize, "stripe-size", o.cfg.StripeSize, "default stripe size in sectors")
	f.Uint32Var(&o.cfg.MaxRaidDevices, "max-raid-devices", o.cfg.MaxRaidDevices, "maximum number of images of a raid logical volume")
	f.Uint32Var(&o.cfg.MaxMirrors, "max-mirrors", o.cfg.MaxMirrors, "maximum number of images of a mirror logical volume")
	f.Uint32Var(&o.cfg.MinReshapeSpace, "min-reshape-space", o.cfg.MinReshapeSpace, "minimum out-of-place reshape space per image in sectors")
	f.Uint64Var(&o.cfg.MaxRegions, "max-regions", o.cfg.MaxRegions, "maximum number of bitmap regions per image")
	f.StringVar(&o.vgFile, "vg-file", "", "volume group metadata file")
	f.StringVar(&o.archiveDir, "archive-dir", "", "directory receiving metadata archives, empty to disable")
	f.StringVar(&o.backupDir, "backup-dir", "", "directory receiving metadata backups, empty to disable")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")
	f.StringVar(&o.mapperDir, "mapper-dir", o.mapperDir, "device-mapper device directory")
	f.DurationVar(&o.lockTimeout, "lock-timeout", o.lockTimeout, "how long to wait for the volume group lock")
	f.BoolVarP(&o.yes, "yes", "y", false, "answer yes to every confirmation")
	f.BoolVarP(&o.force, "force", "f", false, "force operations that reduce redundancy")
	f.BoolVar(&o.dryRun, "dry-run", false, "simulate the live devices instead of driving device-mapper")
	cmd.MarkPersistentFlagRequired("vg-file")
	if goFlags != nil {
		f.AddGoFlagSet(goFlags)
	}

	cmd.AddCommand(
		newConvertCommand(o),
		newSplitCommand(o),
		newTrackCommand(o),
		newMergeCommand(o),
		newReplaceCommand(o),
		newRemoveMissingCommand(o),
		newTypesCommand(o),
		newCheckDegradedCommand(o),
		newSuperblockCommand(o),
	)
	return cmd
}
