// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package monitor

import (
	"bufio"
	"net/netip"
	"os"
	"strings"

	"github.com/interlockhq/interlock/internal/logging"
)

// loadMaliciousIPs reads a newline-delimited IP seed file. Blank lines and
// '#' comments are skipped; unparseable lines are logged and skipped so a
// bad line never prevents startup. A missing path yields an empty set.
func loadMaliciousIPs(path string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if path == "" {
		return set, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := netip.ParseAddr(line); err != nil {
			logging.Warn().
				Str("file", path).
				Str("line", line).
				Msg("Skipping malformed entry in malicious IP file")
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	logging.Info().
		Str("file", path).
		Int("count", len(set)).
		Msg("Loaded malicious IP seed file")
	return set, nil
}

// isPrivateOrReserved reports whether the address belongs to a private,
// loopback, link-local, or otherwise non-routable range. Such addresses
// hitting a public endpoint indicate spoofed headers or a proxy
// misconfiguration. Unparseable input counts as suspicious.
func isPrivateOrReserved(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}
