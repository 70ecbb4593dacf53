//go:build integration

package resolve_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/internal/process"
	"github.com/oxyzenQ/zenlixem/internal/resolve"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

func holdersOf(res *model.ResolutionResult, pid int) []model.HolderEvidence {
	var out []model.HolderEvidence
	for _, h := range res.Holders {
		if h.PID == pid {
			out = append(out, h)
		}
	}
	return out
}

var _ = Describe("Resolver on the live process filesystem", func() {
	var (
		fs       proc.FS
		resolver *resolve.Resolver
		self     int
		ctx      context.Context
	)

	BeforeEach(func() {
		logger, _ := zap.NewDevelopment()
		fs = proc.New(proc.DefaultRoot)
		resolver = resolve.New(fs, logger, 4)
		self = os.Getpid()
		ctx = context.Background()
	})

	Describe("file targets", func() {
		Context("when this process holds a file open", func() {
			It("should report the descriptor", func() {
				path := filepath.Join(GinkgoT().TempDir(), "held.txt")
				f, err := os.Create(path)
				Expect(err).NotTo(HaveOccurred())
				defer f.Close()

				res, err := resolver.Resolve(ctx, path, model.Options{})
				Expect(err).NotTo(HaveOccurred())

				mine := holdersOf(res, self)
				Expect(mine).NotTo(BeEmpty())
				Expect(mine[0].Descriptor).To(Equal(model.FDDescriptor(int(f.Fd()))))
				Expect(mine[0].Confirmed).To(BeTrue())
			})
		})

		Context("when the file was renamed after opening", func() {
			It("should still match by identity", func() {
				dir := GinkgoT().TempDir()
				path := filepath.Join(dir, "before.txt")
				f, err := os.Create(path)
				Expect(err).NotTo(HaveOccurred())
				defer f.Close()

				moved := filepath.Join(dir, "after.txt")
				Expect(os.Rename(path, moved)).To(Succeed())

				res, err := resolver.Resolve(ctx, moved, model.Options{})
				Expect(err).NotTo(HaveOccurred())
				Expect(holdersOf(res, self)).NotTo(BeEmpty())
			})
		})

		Context("when nobody holds the file", func() {
			It("should report no holders", func() {
				path := filepath.Join(GinkgoT().TempDir(), "idle.txt")
				Expect(os.WriteFile(path, []byte("x"), 0o644)).To(Succeed())

				res, err := resolver.Resolve(ctx, path, model.Options{})
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Holders).To(BeEmpty())
			})
		})

		Context("when the working directory is the target", func() {
			It("should report cwd", func() {
				wd, err := os.Getwd()
				Expect(err).NotTo(HaveOccurred())

				res, err := resolver.Resolve(ctx, wd, model.Options{})
				Expect(err).NotTo(HaveOccurred())

				var kinds []model.DescriptorType
				for _, h := range holdersOf(res, self) {
					kinds = append(kinds, h.Descriptor.Type)
				}
				Expect(kinds).To(ContainElement(model.DescriptorCwd))
			})
		})
	})

	Describe("port targets", func() {
		Context("when this process listens on TCP", func() {
			It("should attribute the socket to this process", func() {
				ln, err := net.Listen("tcp4", "127.0.0.1:0")
				Expect(err).NotTo(HaveOccurred())
				defer ln.Close()
				port := ln.Addr().(*net.TCPAddr).Port

				res, err := resolver.Resolve(ctx, strconv.Itoa(port), model.Options{ListeningOnly: true})
				Expect(err).NotTo(HaveOccurred())

				mine := holdersOf(res, self)
				Expect(mine).To(HaveLen(1))
				Expect(mine[0].Socket).NotTo(BeNil())
				Expect(mine[0].Socket.StateLabel()).To(Equal("LISTEN"))
				Expect(mine[0].Socket.LocalAddr).To(Equal("127.0.0.1"))
			})
		})

		Context("when this process has an unconnected UDP socket", func() {
			It("should report UNCONN", func() {
				conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
				Expect(err).NotTo(HaveOccurred())
				defer conn.Close()
				port := conn.LocalAddr().(*net.UDPAddr).Port

				res, err := resolver.Resolve(ctx, strconv.Itoa(port), model.Options{Protocol: model.ProtocolUDP})
				Expect(err).NotTo(HaveOccurred())

				mine := holdersOf(res, self)
				Expect(mine).To(HaveLen(1))
				Expect(mine[0].Socket.StateLabel()).To(Equal("UNCONN"))
			})
		})

		Context("when listing ports", func() {
			It("should include the listener", func() {
				ln, err := net.Listen("tcp", "127.0.0.1:0")
				Expect(err).NotTo(HaveOccurred())
				defer ln.Close()
				port := uint16(ln.Addr().(*net.TCPAddr).Port)

				listing, err := resolver.Ports(ctx, model.Options{ListeningOnly: true})
				Expect(err).NotTo(HaveOccurred())

				found := false
				for _, r := range listing.Rows {
					if r.Port == port && r.PID == self {
						found = true
					}
				}
				Expect(found).To(BeTrue())
			})
		})
	})

	Describe("ancestry", func() {
		It("should end with this process", func() {
			chain, err := process.BuildAncestry(fs, self)
			Expect(err).NotTo(HaveOccurred())
			Expect(chain).NotTo(BeEmpty())
			Expect(chain[len(chain)-1].PID).To(Equal(self))
		})
	})
})
