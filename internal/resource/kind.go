// Package resource defines the resource model shared by discovery, cleanup and reporting.
package resource

import "fmt"

// Kind identifies one type of cloud resource.
type Kind int

// Supported resource kinds.
const (
	Instance Kind = iota + 1
	Flavor
	Keypair
	Image
	Volume
	VolumeSnapshot
	Network
	Router
	Port
	SecurityGroup
	FloatingIP
	LoadBalancer
	DNSZone
	HeatStack
)

type kindInfo struct {
	name  string // external name used in resource list files
	label string // human readable label used in reports
}

var kinds = map[Kind]kindInfo{
	Instance:       {"instances", "INSTANCE"},
	Flavor:         {"flavors", "FLAVOR"},
	Keypair:        {"keypairs", "KEYPAIR"},
	Image:          {"images", "IMAGE"},
	Volume:         {"volumes", "VOLUME"},
	VolumeSnapshot: {"volume_snapshots", "VOLUME SNAPSHOT"},
	Network:        {"networks", "NETWORK"},
	Router:         {"routers", "ROUTER"},
	Port:           {"ports", "PORT"},
	SecurityGroup:  {"sec_groups", "SECURITY GROUP"},
	FloatingIP:     {"floating_ips", "FLOATING IP"},
	LoadBalancer:   {"loadbalancers", "LOAD BALANCER"},
	DNSZone:        {"dns_zones", "DNS ZONE"},
	HeatStack:      {"heat_stacks", "HEAT STACK"},
}

// AllKinds returns every supported kind in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := Instance; k <= HeatStack; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the external (list file) name of the kind.
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Label returns the upper-case label used in reports.
func (k Kind) Label() string {
	if info, ok := kinds[k]; ok {
		return info.label
	}
	return k.String()
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// ParseKind maps an external name such as "volumes" to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, info := range kinds {
		if info.name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown resource type %q", name)
}
