package fsstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// ReadMsgpack decodes path into out. A missing or empty file reports false
// and leaves out untouched.
func ReadMsgpack(path string, out any) (bool, error) {
	target, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read msgpack %s: %w", target, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %v", ErrDecodeFailed, target, err)
	}
	return true, nil
}

func WriteMsgpackAtomic(path string, v any, opts FileOptions) error {
	target, err := cleanPath(path)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrEncodeFailed, target, err)
	}
	return WriteFileAtomic(target, data, opts)
}
