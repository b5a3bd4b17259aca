package testutil

import (
	"net"
	"net/netip"
	"sync"
	"testing"

	"github.com/miekg/dns"
)

// StartDNSServer serves zone over UDP on loopback and returns its address.
// Names are fully qualified ("example.test."). Each query rotates the answer
// list by one, so repeated lookups return the addresses in a different order.
// Unknown names get NXDOMAIN.
func StartDNSServer(t *testing.T, zone map[string][]netip.Addr) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		turns = make(map[string]int)
	)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)

		q := req.Question[0]
		addrs, ok := zone[q.Name]
		if !ok {
			resp.SetRcode(req, dns.RcodeNameError)
			_ = w.WriteMsg(resp)
			return
		}

		mu.Lock()
		n := turns[q.Name]
		turns[q.Name]++
		mu.Unlock()

		for i := range addrs {
			a := addrs[(i+n)%len(addrs)]
			hdr := dns.RR_Header{Name: q.Name, Class: dns.ClassINET, Ttl: 0}
			switch {
			case a.Is4() && q.Qtype == dns.TypeA:
				hdr.Rrtype = dns.TypeA
				resp.Answer = append(resp.Answer, &dns.A{Hdr: hdr, A: a.AsSlice()})
			case a.Is6() && q.Qtype == dns.TypeAAAA:
				hdr.Rrtype = dns.TypeAAAA
				resp.Answer = append(resp.Answer, &dns.AAAA{Hdr: hdr, AAAA: a.AsSlice()})
			}
		}
		_ = w.WriteMsg(resp)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started

	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}
