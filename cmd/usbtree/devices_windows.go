//go:build windows

package main

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	goutils "go.viam.com/utils"

	"go.viam.com/usbtree/discovery"
	"go.viam.com/usbtree/session"
)

func sessionOptions(prof profile) []session.Option {
	var discoverOpts []discovery.Option
	if prof.MaxDepth > 0 {
		discoverOpts = append(discoverOpts, discovery.WithMaxDepth(prof.MaxDepth))
	}
	if prof.Concurrent {
		discoverOpts = append(discoverOpts, discovery.WithConcurrency(true))
	}
	return []session.Option{session.WithDiscoveryOptions(discoverOpts...)}
}

// The enumerate helpers return whatever devices the walk reached even when
// it also returns errors; callers decide how loud to be about the skips.

func enumerateUSB(ctx context.Context, logger golog.Logger, prof profile) ([]discovery.Device, error) {
	sess, err := session.New(logger, sessionOptions(prof)...)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(sess.Close)
	err = sess.EnumerateUSB(ctx)
	return sess.Devices(), err
}

func enumerateByClass(ctx context.Context, logger golog.Logger, prof profile, setupClass uuid.UUID) ([]discovery.Device, error) {
	sess, err := session.New(logger, sessionOptions(prof)...)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(sess.Close)
	err = sess.EnumerateByClass(ctx, setupClass)
	return sess.Devices(), err
}

func enumerateMassStorage(ctx context.Context, logger golog.Logger, prof profile) ([]discovery.Device, error) {
	sess, err := session.New(logger, sessionOptions(prof)...)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(sess.Close)
	err = sess.EnumerateMassStorage(ctx)
	return sess.Devices(), err
}
