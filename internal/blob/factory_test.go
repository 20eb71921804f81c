package blob

import (
	"cagecore/internal/blob/core"
	"cagecore/internal/config"
	"context"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		cfg  config.Blob
		want core.Driver
	}{
		{cfg: config.Blob{Driver: "fs", FSRoot: t.TempDir()}, want: core.DriverFilesystem},
		{cfg: config.Blob{Driver: "", FSRoot: t.TempDir()}, want: core.DriverFilesystem},
		{cfg: config.Blob{Driver: "memory"}, want: core.DriverMemory},
		{cfg: config.Blob{Driver: "s3", S3: config.S3{Bucket: "cages", Region: "eu-west-1", AccessKeyID: "a", SecretAccessKey: "b"}}, want: core.DriverS3},
	}
	for _, tc := range cases {
		store, err := Open(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("%s: %v", tc.cfg.Driver, err)
		}
		if store.Driver() != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.cfg.Driver, tc.want, store.Driver())
		}
	}
}

func TestOpenNoneAndUnknown(t *testing.T) {
	store, err := Open(context.Background(), config.Blob{Driver: "none"})
	if err != nil || store != nil {
		t.Fatalf("expected nil store for none driver, got %v %v", store, err)
	}
	if _, err := Open(context.Background(), config.Blob{Driver: "ftp"}); err == nil {
		t.Fatal("expected unknown driver error")
	}
	if _, err := Open(context.Background(), config.Blob{Driver: "s3"}); err == nil {
		t.Fatal("expected missing bucket error")
	}
}
