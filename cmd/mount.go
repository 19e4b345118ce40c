package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jacobsa/fuse"
	"github.com/spf13/cobra"

	"github.com/santileortiz/dhtfs/internal/logger"
	"github.com/santileortiz/dhtfs/internal/perms"
	"github.com/santileortiz/dhtfs/internal/resolver"
	"github.com/santileortiz/dhtfs/internal/seqgen"
	"github.com/santileortiz/dhtfs/internal/store"
	"github.com/santileortiz/dhtfs/internal/tagfs"
	"github.com/santileortiz/dhtfs/internal/tagindex"
)

const (
	tagIndexFile   = ".tagindex"
	seqCounterFile = ".seqcounter"
)

var mountCmd = &cobra.Command{
	Use:   "mount <mount-point>",
	Short: "Mount the tag filesystem rooted at --root onto mount-point, blocking until it is unmounted",
	Args:  cobra.ExactArgs(1),
	RunE:  runMount,
}

func registerSIGINTHandler(mountPoint string, log *logger.Logger) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			log.Infof("received SIGINT, attempting to unmount %s", mountPoint)
			if err := fuse.Unmount(mountPoint); err != nil {
				log.Errorf("failed to unmount in response to SIGINT: %v", err)
				continue
			}
			log.Infof("successfully unmounted %s", mountPoint)
			return
		}
	}()
}

// runMount implements spec.md §4.6/§9's checkSetup preflight: both
// persisted stores must already exist (created by "dhtfs setup") before a
// mount is allowed to proceed.
func runMount(cmd *cobra.Command, args []string) error {
	if err := checkPreflight(); err != nil {
		return err
	}
	mountPoint := args[0]
	root, err := filepath.Abs(MountConfig.Root)
	if err != nil {
		return fmt.Errorf("resolving --root: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseSeverity(string(MountConfig.Logging.Severity)), string(MountConfig.Logging.Format))

	for _, name := range []string{tagIndexFile, seqCounterFile} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			return fmt.Errorf("checking %s: run `dhtfs setup %s` first: %w", name, root, err)
		}
	}

	idxAdapter, err := store.Open(filepath.Join(root, tagIndexFile))
	if err != nil {
		return fmt.Errorf("opening tag index: run `dhtfs setup %s` first: %w", root, err)
	}
	idx := tagindex.New(idxAdapter)
	if err := idx.Load(); err != nil {
		return fmt.Errorf("loading tag index: run `dhtfs setup %s` first: %w", root, err)
	}

	seqAdapter, err := store.Open(filepath.Join(root, seqCounterFile))
	if err != nil {
		return fmt.Errorf("opening sequence counter: run `dhtfs setup %s` first: %w", root, err)
	}
	seq := seqgen.New(seqAdapter)

	res := resolver.New(root, idx)

	uid, gid, err := perms.MyUserAndGroup()
	if err != nil {
		return fmt.Errorf("MyUserAndGroup: %w", err)
	}

	server, stopGC, err := tagfs.NewServer(&tagfs.ServerConfig{
		Root:          root,
		Index:         idx,
		Seq:           seq,
		Resolver:      res,
		Logger:        log,
		CoverMode:     MountConfig.FileSystem.CoverMode,
		MaxDirEntries: MountConfig.FileSystem.MaxDirEntries,
		DirPerm:       os.FileMode(MountConfig.FileSystem.DirMode),
		Uid:           uid,
		Gid:           gid,
	})
	if err != nil {
		return fmt.Errorf("tagfs.NewServer: %w", err)
	}
	defer stopGC()

	mountCfg := &fuse.MountConfig{
		FSName:     "dhtfs",
		Subtype:    "dhtfs",
		VolumeName: "dhtfs",
	}
	severity := logger.ParseSeverity(string(MountConfig.Logging.Severity))
	if severity <= logger.ERROR {
		mountCfg.ErrorLogger = log.NewLegacyLogger(logger.ERROR, "fuse: ")
	}
	if severity <= logger.TRACE {
		mountCfg.DebugLogger = log.NewLegacyLogger(logger.TRACE, "fuse_debug: ")
	}

	log.Infof("mounting %s at %s", root, mountPoint)
	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("fuse.Mount: %w", err)
	}

	registerSIGINTHandler(mountPoint, log)

	return mfs.Join(context.Background())
}
