package blockdev

import "os"

// File is a Device backed by a real disk-image file, used by cmd/eduosd.
type File struct {
	f *os.File
}

// OpenFile opens (without creating) the disk image at path for read/write
// sector access.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Close releases the underlying file descriptor.
func (d *File) Close() error {
	return d.f.Close()
}

func (d *File) ReadSector(lba int64, buf []byte) error {
	if len(buf) < SectorSize {
		return &ErrShortBuffer{Want: SectorSize, Got: len(buf)}
	}
	_, err := d.f.ReadAt(buf[:SectorSize], lba*SectorSize)
	return err
}

func (d *File) WriteSector(lba int64, buf []byte) error {
	if len(buf) < SectorSize {
		return &ErrShortBuffer{Want: SectorSize, Got: len(buf)}
	}
	_, err := d.f.WriteAt(buf[:SectorSize], lba*SectorSize)
	return err
}

func (d *File) ReadPart(lba int64, offset, length int, buf []byte) error {
	if err := checkPart(offset, length); err != nil {
		return err
	}
	if len(buf) < length {
		return &ErrShortBuffer{Want: length, Got: len(buf)}
	}
	_, err := d.f.ReadAt(buf[:length], lba*SectorSize+int64(offset))
	return err
}

func (d *File) Modify(lba int64, offset int, buf []byte, length int) error {
	if err := checkPart(offset, length); err != nil {
		return err
	}
	if len(buf) < length {
		return &ErrShortBuffer{Want: length, Got: len(buf)}
	}
	_, err := d.f.WriteAt(buf[:length], lba*SectorSize+int64(offset))
	return err
}
