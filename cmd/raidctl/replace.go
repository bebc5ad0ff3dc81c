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
	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newReplaceCommand(o *options) *cobra.Command {
	var remove []string
	cmd := &cobra.Command{
		Use:   "replace LV --replace PV [PV...]",
		Short: "Replace the images of a raid logical volume allocated on the given devices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(remove) == 0 {
				return status.Errorf(codes.InvalidArgument, "at least one --replace device is required")
			}
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				return s.run("replace", lv, func() error {
					return s.engine.Replace(cmd.Context(), lv, o.force, remove, args[1:])
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&remove, "replace", nil, "device whose images are replaced, repeatable")
	return cmd
}

func newRemoveMissingCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-missing LV",
		Short: "Replace the images on missing devices with error mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withLV(cmd, args, func(s *session, lv *raid.LogicalVolume) error {
				return s.run("remove-missing", lv, func() error {
					return s.engine.RemoveMissing(cmd.Context(), lv)
				})
			})
		},
	}
}
