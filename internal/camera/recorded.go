package camera

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// SaveRecordings writes the little-endian int32 count + records format of
// spec §6's persisted state
// (`<data>/scenes/temp/<sceneName>_recorded_camera`), rewriting the file
// in full on each append.
func SaveRecordings(path string, recordings []Recorded) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteRecordings(f, recordings)
}

func WriteRecordings(w io.Writer, recordings []Recorded) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(recordings))); err != nil {
		return err
	}
	for _, r := range recordings {
		for _, v := range []mgl32.Vec3{r.Position, r.LookAt, r.Up, r.Right} {
			if err := binary.Write(w, binary.LittleEndian, [3]float32{v[0], v[1], v[2]}); err != nil {
				return err
			}
		}
		for _, m := range []mgl32.Mat4{r.View, r.Proj} {
			if err := binary.Write(w, binary.LittleEndian, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadRecordings reads the format written by SaveRecordings. Per spec §7
// RecordedCameraIOFailure is a recovered error: callers should treat a
// missing/corrupt file as "no recordings" rather than a fatal error.
func LoadRecordings(path string) ([]Recorded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecordings(f)
}

func ReadRecordings(r io.Reader) ([]Recorded, error) {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("camera: negative recording count %d", count)
	}
	out := make([]Recorded, count)
	for i := range out {
		var vecs [4][3]float32
		for j := range vecs {
			if err := binary.Read(r, binary.LittleEndian, &vecs[j]); err != nil {
				return nil, err
			}
		}
		out[i].Position = mgl32.Vec3{vecs[0][0], vecs[0][1], vecs[0][2]}
		out[i].LookAt = mgl32.Vec3{vecs[1][0], vecs[1][1], vecs[1][2]}
		out[i].Up = mgl32.Vec3{vecs[2][0], vecs[2][1], vecs[2][2]}
		out[i].Right = mgl32.Vec3{vecs[3][0], vecs[3][1], vecs[3][2]}

		if err := binary.Read(r, binary.LittleEndian, &out[i].View); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &out[i].Proj); err != nil {
			return nil, err
		}
	}
	return out, nil
}
