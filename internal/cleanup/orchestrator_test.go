package cleanup_test

import (
	"context"
	"errors"
	"strings"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/osclean/internal/cleanup"
	"github.com/imamik/osclean/internal/filter"
	"github.com/imamik/osclean/internal/resource"
)

var errInUse = errors.New("resource is in use")

func testCluster() []resource.Resource {
	return []resource.Resource{
		{Kind: resource.HeatStack, ID: "st1", Name: "test-stack"},
		{Kind: resource.DNSZone, ID: "z1", Name: "test-zone.example.org."},
		{Kind: resource.Instance, ID: "i1", Name: "test-vm-1"},
		{Kind: resource.Instance, ID: "i2", Name: "test-vm-2"},
		{Kind: resource.Flavor, ID: "fl1", Name: "test-flavor"},
		{Kind: resource.Keypair, ID: "test-key", Name: "test-key"},
		{Kind: resource.Image, ID: "img1", Name: "test-image"},
		{Kind: resource.Volume, ID: "v1", Name: "test-vol"},
		{Kind: resource.VolumeSnapshot, ID: "s1", Name: "test-snap"},
		{Kind: resource.LoadBalancer, ID: "lb1", Name: "test-lb"},
		{Kind: resource.FloatingIP, ID: "f1", Address: "203.0.113.5", Description: "test-vm-1 public"},
		{Kind: resource.Router, ID: "r1", Name: "test-router"},
		{Kind: resource.Network, ID: "n1", Name: "test-net"},
		{Kind: resource.SecurityGroup, ID: "sg1", Name: "test-sg"},
		{Kind: resource.Volume, ID: "v-prod", Name: "prod-vol"},
		{Kind: resource.Network, ID: "n-prod", Name: "prod-net"},
	}
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx   context.Context
		cloud *fakeCloud
		deps  *cleanup.Deps
		orch  *cleanup.Orchestrator
	)

	build := func(supplied resource.Inventory) {
		deps = cleanup.NewDeps(cloud, cleanup.NewDiscovery(filter.MustNew("^test-"), supplied), fastTimeouts())
		orch = cleanup.NewOrchestrator(deps, cleanup.ServiceAvailability{DNS: true, Orchestration: true})
	}

	BeforeEach(func() {
		ctx = logr.NewContext(context.Background(), GinkgoLogr)
		cloud = newFakeCloud(testCluster()...)
		cloud.servers["i1"] = []string{"203.0.113.5"}
		build(nil)
	})

	It("builds the cleaners in dependency order", func() {
		var order []cleanup.Category
		for _, c := range orch.Cleaners() {
			order = append(order, c.Category())
		}
		Expect(order).To(Equal([]cleanup.Category{
			cleanup.CategoryAdvancedServices,
			cleanup.CategoryCompute,
			cleanup.CategoryStorage,
			cleanup.CategoryLoadBalancer,
			cleanup.CategoryNetwork,
		}))
	})

	It("selects only resources matching the filter", func() {
		inv := orch.Enumerate(ctx)
		Expect(inv.Count()).To(Equal(14))
		Expect(inv[resource.Volume]).To(Equal(map[string]string{"v1": "test-vol"}))
		Expect(inv[resource.FloatingIP]).To(HaveKeyWithValue("f1", "203.0.113.5 (desc: test-vm-1 public)"))
	})

	It("finds nothing when no resource matches", func() {
		cloud = newFakeCloud(resource.Resource{Kind: resource.Volume, ID: "v-prod", Name: "prod-vol"})
		build(nil)
		Expect(orch.Enumerate(ctx).Count()).To(BeZero())
	})

	Context("dry run", func() {
		It("reports every selected resource without mutating anything", func() {
			inv := orch.Enumerate(ctx)
			summary := orch.Run(ctx, true)

			Expect(cloud.Mutations()).To(BeEmpty())
			Expect(summary.DryRun).To(BeTrue())
			Expect(summary.Processed).To(Equal(inv.Count()))
			Expect(summary.Count(resource.StatusWouldDelete)).To(Equal(inv.Count()))
			for _, ref := range inv.Rows() {
				Expect(deps.Recorder.Has(ref)).To(BeTrue(), ref.Key())
			}
		})
	})

	Context("live run", func() {
		It("deletes everything selected exactly once", func() {
			inv := orch.Enumerate(ctx)
			summary := orch.Run(ctx, false)

			Expect(summary.Processed).To(Equal(inv.Count()))
			Expect(summary.Count(resource.StatusDeleted)).To(Equal(inv.Count()))
			Expect(summary.Problems()).To(BeZero())
			Expect(summary.Timings).To(HaveLen(5))

			for k, n := range cloud.deleteCounts() {
				Expect(n).To(Equal(1), k)
			}
			Expect(cloud.has(resource.Volume, "v-prod")).To(BeTrue())
			Expect(cloud.has(resource.Network, "n-prod")).To(BeTrue())
			Expect(cloud.has(resource.SecurityGroup, "sg1")).To(BeFalse())
		})

		It("deletes an instance's floating IP before the instance", func() {
			orch.Enumerate(ctx)
			orch.Run(ctx, false)

			calls := mutations(cloud)
			Expect(indexOf(calls, "Delete floating_ips/f1")).To(BeNumerically("<", indexOf(calls, "Delete instances/i1")))
		})

		It("deletes security groups only after all compute deletions", func() {
			orch.Enumerate(ctx)
			orch.Run(ctx, false)

			calls := mutations(cloud)
			sg := indexOf(calls, "Delete sec_groups/sg1")
			Expect(sg).To(BeNumerically(">=", 0))
			for i, c := range calls {
				for _, prefix := range []string{"Delete instances/", "Delete flavors/", "Delete keypairs/", "Delete images/"} {
					if strings.HasPrefix(c, prefix) {
						Expect(i).To(BeNumerically("<", sg), c)
					}
				}
			}
		})

		It("reports resources that vanished after discovery as already gone", func() {
			inv := orch.Enumerate(ctx)
			for _, ref := range inv.Rows() {
				cloud.vanish(ref.Kind, ref.ID)
			}

			summary := orch.Run(ctx, false)

			Expect(summary.Count(resource.StatusFailed)).To(BeZero())
			Expect(summary.Count(resource.StatusAlreadyGone)).To(Equal(inv.Count()))
		})

		It("keeps going after a failure", func() {
			cloud.failures["volumes/v1"] = errors.New("backend exploded")
			orch.Enumerate(ctx)

			summary := orch.Run(ctx, false)

			Expect(summary.Count(resource.StatusFailed)).To(Equal(1))
			Expect(cloud.has(resource.Network, "n1")).To(BeFalse())
			Expect(cloud.has(resource.SecurityGroup, "sg1")).To(BeFalse())
		})

		It("retries security group conflicts within the budget", func() {
			cloud.conflicts["sec_groups/sg1"] = 2
			orch.Enumerate(ctx)
			orch.Run(ctx, false)

			Expect(outcome(deps, resource.SecurityGroup, "sg1").Status).To(Equal(resource.StatusDeleted))
		})

		It("fails a security group that stays in use", func() {
			cloud.conflicts["sec_groups/sg1"] = 10
			orch.Enumerate(ctx)
			orch.Run(ctx, false)

			o := outcome(deps, resource.SecurityGroup, "sg1")
			Expect(o.Status).To(Equal(resource.StatusFailed))
			Expect(o.Reason).To(ContainSubstring("after retries"))
		})
	})

	Context("with a supplied inventory", func() {
		It("trusts the list and never lists the backend for supplied kinds", func() {
			supplied := resource.Inventory{}
			for _, k := range resource.AllKinds() {
				supplied[k] = map[string]string{}
			}
			supplied.Set(resource.Volume, "v-prod", "prod-vol")
			build(supplied)

			inv := orch.Enumerate(ctx)
			Expect(inv.Count()).To(Equal(1))
			Expect(cloud.CallsTo("List")).To(BeEmpty())

			deps.Sweep = false
			orch.Run(ctx, false)
			Expect(cloud.has(resource.Volume, "v-prod")).To(BeFalse())
		})
	})
})

func mutations(f *fakeCloud) []string {
	var out []string
	for _, c := range f.Mutations() {
		out = append(out, c.String())
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func outcome(deps *cleanup.Deps, kind resource.Kind, id string) resource.Outcome {
	for _, o := range deps.Recorder.Outcomes() {
		if o.Kind == kind && o.ID == id {
			return o
		}
	}
	Fail("no outcome for " + kind.String() + "/" + id)
	return resource.Outcome{}
}
