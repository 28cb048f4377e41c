package rttest

import (
	"fmt"
	"os"
	"time"

	"github.com/roffe/rtcan"
	"gopkg.in/yaml.v2"
)

// Profile is a stored test setup. Command line flags override it.
//
//	interface: can0
//	bitrate: 500000
//	tx: 123#DEADBEEF
//	tx_interval: 1000   # microseconds
//	rx: true
//	priority: 80
//	filters:
//	  - id: 0x123
//	    mask: 0x7ff
type Profile struct {
	Interface  string          `yaml:"interface"`
	Bitrate    uint32          `yaml:"bitrate"`
	TX         string          `yaml:"tx"`
	TXInterval int64           `yaml:"tx_interval"`
	RX         bool            `yaml:"rx"`
	Verbose    bool            `yaml:"verbose"`
	Detail     bool            `yaml:"detail"`
	Priority   *int            `yaml:"priority"`
	RecvOwn    bool            `yaml:"recv_own"`
	Filters    []ProfileFilter `yaml:"filters"`
}

type ProfileFilter struct {
	ID   uint32 `yaml:"id"`
	Mask uint32 `yaml:"mask"`
}

func LoadProfile(path string) (*Profile, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.UnmarshalStrict(contents, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile %s: %w", path, err)
	}
	if p.TXInterval < 0 {
		return nil, fmt.Errorf("profile %s: negative tx_interval %d", path, p.TXInterval)
	}
	return &p, nil
}

func (p *Profile) Interval() time.Duration {
	return time.Duration(p.TXInterval) * time.Microsecond
}

func (p *Profile) RxFilters() []rtcan.Filter {
	if len(p.Filters) == 0 {
		return nil
	}
	out := make([]rtcan.Filter, len(p.Filters))
	for i, f := range p.Filters {
		out[i] = rtcan.Filter{ID: f.ID, Mask: f.Mask}
	}
	return out
}
