// Package dns resolves relay targets given by name.
//
// Names are looked up through the system resolver, or through an explicit
// list of nameservers queried with github.com/miekg/dns. Results are never
// cached: every call goes to the network, so a name that rotates through
// several addresses spreads successive dials across them.
package dns
