package resolve

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxyzenQ/zenlixem/pkg/model"
)

func evidence(pid int, d model.Descriptor) model.HolderEvidence {
	return model.HolderEvidence{PID: pid, Command: fmt.Sprintf("p%d", pid), Descriptor: d, Confirmed: true}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	base := []model.HolderEvidence{
		evidence(30, model.Descriptor{Type: model.DescriptorMmap}),
		evidence(30, model.FDDescriptor(12)),
		evidence(7, model.Descriptor{Type: model.DescriptorExe}),
		evidence(30, model.FDDescriptor(2)),
		evidence(7, model.Descriptor{Type: model.DescriptorCwd}),
		evidence(100, model.FDDescriptor(0)),
	}
	issues := []Issue{
		{Kind: model.WarnIO, Source: "pid 9", Detail: "boom"},
		{Kind: model.WarnMalformedData, Source: "net/tcp line 3", Detail: "short"},
	}
	want := Aggregate(Findings{Target: fileTarget(heldFile), Evidence: base, Issues: issues})

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		ev := append([]model.HolderEvidence(nil), base...)
		rng.Shuffle(len(ev), func(a, b int) { ev[a], ev[b] = ev[b], ev[a] })
		is := append([]Issue(nil), issues...)
		rng.Shuffle(len(is), func(a, b int) { is[a], is[b] = is[b], is[a] })

		got := Aggregate(Findings{Target: fileTarget(heldFile), Evidence: ev, Issues: is})
		require.Equal(t, want, got)
	}

	var order []string
	for _, h := range want.Holders {
		order = append(order, fmt.Sprintf("%d %s", h.PID, h.Descriptor))
	}
	assert.Equal(t, []string{"7 cwd", "7 executable", "30 fd 2", "30 fd 12", "30 memory_map", "100 fd 0"}, order)
}

func TestAggregate_DropsDuplicateEvidence(t *testing.T) {
	res := Aggregate(Findings{
		Target: fileTarget(heldFile),
		Evidence: []model.HolderEvidence{
			evidence(5, model.FDDescriptor(3)),
			evidence(5, model.FDDescriptor(3)),
			evidence(5, model.Descriptor{Type: model.DescriptorMmap}),
		},
	})
	assert.Len(t, res.Holders, 2)
}

func TestAggregate_WarningsFoldedAndCapped(t *testing.T) {
	var issues []Issue
	for i := 9; i > 4; i-- {
		issues = append(issues, Issue{Kind: model.WarnMalformedData, Source: fmt.Sprintf("net/udp line %d", i), Detail: "short"})
	}
	issues = append(issues,
		Issue{Kind: model.WarnIO, Source: "pid 1", Detail: "eio"},
		Issue{Kind: model.WarnDuplicateInode, Source: "net/tcp6 line 2", Detail: "inode 5"},
	)

	res := Aggregate(Findings{
		Target: fileTarget(heldFile),
		Denied: []model.ProcessSnapshot{{PID: 1, UID: 0}, {PID: 2, UID: 0}},
		Issues: issues,
	})

	require.Len(t, res.Warnings, 4)
	kinds := []model.WarningKind{res.Warnings[0].Kind, res.Warnings[1].Kind, res.Warnings[2].Kind, res.Warnings[3].Kind}
	assert.Equal(t, []model.WarningKind{
		model.WarnPermissionDenied,
		model.WarnMalformedData,
		model.WarnDuplicateInode,
		model.WarnIO,
	}, kinds)

	assert.Equal(t,
		"2 process(es) could not be inspected (permission denied); run as root for complete results",
		res.Warnings[0].Detail)
	assert.Equal(t,
		"skipped 5 record(s): net/udp line 5: short; net/udp line 6: short; net/udp line 7: short; and 2 more",
		res.Warnings[1].Detail)
	assert.True(t, res.Degraded)
	assert.Equal(t, 2, res.Skipped)
}

func TestAggregate_UnresolvedSortedLastByUID(t *testing.T) {
	table := buildTable(t,
		netRow("00000000:1F90", "0A", "1001", "11")+
			netRow("00000000:1F90", "0A", "33", "12")+
			netRow("00000000:1F90", "0A", "1000", "13"))

	res := Aggregate(Findings{
		Target:   portTarget(8080),
		Evidence: []model.HolderEvidence{{PID: 9000, Command: "x", Descriptor: model.FDDescriptor(4), Confirmed: true, Socket: socketOf(table, 13)}},
		Denied:   []model.ProcessSnapshot{{PID: 1, UID: 1001}, {PID: 2, UID: 33}, {PID: 3, UID: 1000}},
		Sockets:  table,
	})

	require.Len(t, res.Holders, 3)
	assert.Equal(t, 9000, res.Holders[0].PID)
	assert.Equal(t, "owner uid=33, pid unresolved", res.Holders[1].Note)
	assert.Equal(t, "owner uid=1001, pid unresolved", res.Holders[2].Note)
}
