package voicefilter

import (
	"encoding/binary"
	"fmt"

	"github.com/xaionaro-go/voicefilter/pkg/audio"
)

func nativeFloat32Format() (audio.PCMFormat, error) {
	switch binary.NativeEndian.Uint16([]byte{1, 2}) {
	case 0x0102:
		return audio.PCMFormatFloat32BE, nil
	case 0x0201:
		return audio.PCMFormatFloat32LE, nil
	}
	return audio.PCMFormatUndefined, fmt.Errorf("unable to detect endianness of this computer")
}
