package schema

import (
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
)

// Compiler turns a .proto file into a serialized FileDescriptorSet on disk.
// The production implementation shells out to protoc; tests substitute their
// own.
type Compiler interface {
	Compile(protoFile, outFile string) error
}

// ProtocCompiler invokes the protoc binary found on PATH (or an explicit
// one) with --descriptor_set_out.
type ProtocCompiler struct {
	// Bin overrides the protoc executable. Empty means "protoc".
	Bin string
}

func (c *ProtocCompiler) Compile(protoFile, outFile string) error {
	bin := c.Bin
	if bin == "" {
		bin = "protoc"
	}

	cmd := exec.Command(bin,
		"--include_imports",
		"--descriptor_set_out="+outFile,
		"-I", filepath.Dir(protoFile),
		protoFile)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "%s returned error\n%s", bin, out)
	}
	return nil
}
