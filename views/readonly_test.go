package views

import (
	"testing"
	"time"
)

func TestReadOnlyBase_mutatingOpsReturnEROFS(t *testing.T) {
	var b ReadOnlyBase

	if _, err := b.Write("/a", 1, 0, nil); err != ErrRofs {
		t.Errorf("Write() = %v, want ErrRofs", err)
	}
	if _, err := b.Create("/a", 0644, OCreat); err != ErrRofs {
		t.Errorf("Create() = %v, want ErrRofs", err)
	}
	if err := b.Mkdir("/a", 0755); err != ErrRofs {
		t.Errorf("Mkdir() = %v, want ErrRofs", err)
	}
	if err := b.Rmdir("/a"); err != ErrRofs {
		t.Errorf("Rmdir() = %v, want ErrRofs", err)
	}
	if err := b.Unlink("/a"); err != ErrRofs {
		t.Errorf("Unlink() = %v, want ErrRofs", err)
	}
	if err := b.Rename("/a", "/b"); err != ErrRofs {
		t.Errorf("Rename() = %v, want ErrRofs", err)
	}
	if err := b.Symlink("t", "/a"); err != ErrRofs {
		t.Errorf("Symlink() = %v, want ErrRofs", err)
	}
	if err := b.Link("/a", "/b"); err != ErrRofs {
		t.Errorf("Link() = %v, want ErrRofs", err)
	}
	if err := b.Chmod("/a", 0644); err != ErrRofs {
		t.Errorf("Chmod() = %v, want ErrRofs", err)
	}
	if err := b.Chown("/a", 0, 0); err != ErrRofs {
		t.Errorf("Chown() = %v, want ErrRofs", err)
	}
	if err := b.Truncate("/a", 0); err != ErrRofs {
		t.Errorf("Truncate() = %v, want ErrRofs", err)
	}
	if err := b.Utimens("/a", time.Now(), time.Now()); err != ErrRofs {
		t.Errorf("Utimens() = %v, want ErrRofs", err)
	}
	if err := b.Setxattr("/a", "x", nil, 0); err != ErrRofs {
		t.Errorf("Setxattr() = %v, want ErrRofs", err)
	}
	if err := b.Removexattr("/a", "x"); err != ErrRofs {
		t.Errorf("Removexattr() = %v, want ErrRofs", err)
	}
}

func TestReadOnlyBase_lifecycleNoOpsSucceed(t *testing.T) {
	var b ReadOnlyBase

	if err := b.Release("/a", 1); err != nil {
		t.Errorf("Release() = %v, want nil", err)
	}
	if err := b.Fsync("/a", 1); err != nil {
		t.Errorf("Fsync() = %v, want nil", err)
	}
	if _, err := b.Opendir("/a"); err != nil {
		t.Errorf("Opendir() = %v, want nil", err)
	}
	if err := b.Releasedir("/a", 1); err != nil {
		t.Errorf("Releasedir() = %v, want nil", err)
	}
	if err := b.Flush("/a", 1); err != nil {
		t.Errorf("Flush() = %v, want nil", err)
	}
	if list, err := b.Listxattr("/a"); err != nil || list != nil {
		t.Errorf("Listxattr() = %v, %v; want nil, nil", list, err)
	}
}

func TestReadOnlyBase_readErrorsAreNoSys(t *testing.T) {
	var b ReadOnlyBase

	if _, err := b.Read("/a", 1, 0, 10); err != ErrNoSys {
		t.Errorf("Read() = %v, want ErrNoSys", err)
	}
	if _, err := b.Readlink("/a"); err != ErrNoSys {
		t.Errorf("Readlink() = %v, want ErrNoSys", err)
	}
	if _, err := b.Getxattr("/a", "x"); err != ErrNoSys {
		t.Errorf("Getxattr() = %v, want ErrNoSys", err)
	}
}

func TestReadOnlyBase_OpenAndAccess_gateOnWriteIntent(t *testing.T) {
	var b ReadOnlyBase

	if _, err := b.Open("/a", 0); err != nil {
		t.Errorf("Open(read-only) = %v, want nil", err)
	}
	if _, err := b.Open("/a", OWronly); err != ErrRofs {
		t.Errorf("Open(write) = %v, want ErrRofs", err)
	}
	if _, err := b.Open("/a", OCreat); err != ErrRofs {
		t.Errorf("Open(create) = %v, want ErrRofs", err)
	}

	if err := b.Access("/a", 0); err != nil {
		t.Errorf("Access(read-only) = %v, want nil", err)
	}
	if err := b.Access("/a", OWronly); err != ErrAcces {
		t.Errorf("Access(write) = %v, want ErrAcces", err)
	}
}

func TestReadOnlyBase_GetattrReaddir_alwaysNoEnt(t *testing.T) {
	var b ReadOnlyBase
	if _, err := b.Getattr("/a"); err != ErrNoEnt {
		t.Errorf("Getattr() = %v, want ErrNoEnt", err)
	}
	if _, err := b.Readdir("/a"); err != ErrNoEnt {
		t.Errorf("Readdir() = %v, want ErrNoEnt", err)
	}
}

func TestReadOnlyBase_Statfs(t *testing.T) {
	var b ReadOnlyBase
	sf, err := b.Statfs()
	if err != nil {
		t.Fatalf("Statfs() error: %v", err)
	}
	if sf.BlockSize != 4096 {
		t.Errorf("Statfs().BlockSize = %d, want 4096", sf.BlockSize)
	}
	if sf.BlocksFree != 0 || sf.FilesFree != 0 {
		t.Errorf("expected a read-only view to report zero free blocks/files, got %+v", sf)
	}
}
