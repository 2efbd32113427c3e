package merkle_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/flowchat/pkg/merkle"
)

func userBucket(text string) merkle.Bucket {
	return merkle.Bucket{Type: "message", Role: "user", Text: text, FlowID: "flow-1"}
}

func botBucket(text string) merkle.Bucket {
	return merkle.Bucket{Type: "message", Role: "bot", Text: text, FlowID: "flow-1"}
}

var _ = Describe("Node", func() {
	Describe("NewNode", func() {
		It("keeps the bucket and has no parent for roots", func() {
			node := merkle.NewNode(userBucket("hello"), nil)

			Expect(node.Bucket.Text).To(Equal("hello"))
			Expect(node.ParentHash).To(BeNil())
		})

		It("produces consistent hashes for the same bucket", func() {
			Expect(merkle.NewNode(userBucket("same"), nil).Hash).
				To(Equal(merkle.NewNode(userBucket("same"), nil).Hash))
		})

		It("produces different hashes for different text or flows", func() {
			a := merkle.NewNode(userBucket("A"), nil)
			b := merkle.NewNode(userBucket("B"), nil)
			other := userBucket("A")
			other.FlowID = "flow-2"
			c := merkle.NewNode(other, nil)

			Expect(a.Hash).NotTo(Equal(b.Hash))
			Expect(a.Hash).NotTo(Equal(c.Hash))
		})

		It("links a reply to its prompt", func() {
			prompt := merkle.NewNode(userBucket("hi"), nil)
			reply := merkle.NewNode(botBucket("hello!"), prompt)

			Expect(reply.ParentHash).NotTo(BeNil())
			Expect(*reply.ParentHash).To(Equal(prompt.Hash))
		})

		It("produces different hashes for the same reply under different prompts", func() {
			p1 := merkle.NewNode(userBucket("one"), nil)
			p2 := merkle.NewNode(userBucket("two"), nil)

			Expect(merkle.NewNode(botBucket("ok"), p1).Hash).
				NotTo(Equal(merkle.NewNode(botBucket("ok"), p2).Hash))
		})

		It("produces a SHA-256 hex string", func() {
			Expect(merkle.NewNode(userBucket("x"), nil).Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
		})
	})
})
