package emulator

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Comcast/gots/psi"

	"tvcore/internal/middleware"
)

// servicesFromTransportStream reads the PAT of a TS capture, then each
// program's PMT, and classifies programs by their elementary streams.
func servicesFromTransportStream(ts TransportStreamProfile) ([]ServiceProfile, error) {
	file, err := os.Open(ts.Path)
	if err != nil {
		return nil, fmt.Errorf("open transport stream: %w", err)
	}
	defer file.Close()

	pat, err := psi.ReadPAT(file)
	if err != nil {
		return nil, fmt.Errorf("read PAT from %s: %w", ts.Path, err)
	}

	programs := pat.ProgramMap()
	numbers := make([]int, 0, len(programs))
	for number := range programs {
		// program 0 points at the NIT, not a service
		if number == 0 {
			continue
		}
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	services := make([]ServiceProfile, 0, len(numbers))
	for _, number := range numbers {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind transport stream: %w", err)
		}
		pmt, err := psi.ReadPMT(file, programs[number])
		if err != nil {
			return nil, fmt.Errorf("read PMT for program %d: %w", number, err)
		}
		services = append(services, ServiceProfile{
			Name:      fmt.Sprintf("Program %d", number),
			Kind:      classifyStreams(pmt.ElementaryStreams()).String(),
			Frequency: ts.Frequency,
		})
	}
	return services, nil
}

func classifyStreams(streams []psi.PmtElementaryStream) middleware.ServiceKind {
	var video, audio bool
	for _, es := range streams {
		switch {
		case es.IsVideoContent():
			video = true
		case es.IsAudioContent():
			audio = true
		}
	}
	switch {
	case video:
		return middleware.ServiceTV
	case audio:
		return middleware.ServiceRadio
	default:
		return middleware.ServiceData
	}
}
