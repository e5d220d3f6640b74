package handler

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	gonet "github.com/limbomc/limbo/internal/net"
	"golang.org/x/text/encoding/unicode"
)

const (
	legacyKickPacket = 0xFF
	// legacyProtocol is above any protocol a pre-1.7 client speaks, so the
	// server list shows the version as incompatible.
	legacyProtocol = 127
)

// legacyPingResponse builds the reply understood by 1.4 to 1.6 clients:
// 0xFF, a big-endian u16 count of UTF-16 code units, then the UTF-16BE
// text "§1\0<protocol>\0<version>\0<motd>\0<online>\0<max>".
func legacyPingResponse(version, motd string, online, max int) ([]byte, error) {
	text := "§1\x00" + strings.Join([]string{
		strconv.Itoa(legacyProtocol),
		version,
		motd,
		strconv.Itoa(online),
		strconv.Itoa(max),
	}, "\x00")

	encoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode legacy ping: %w", err)
	}

	buf := make([]byte, 3, 3+len(encoded))
	buf[0] = legacyKickPacket
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(encoded)/2))
	return append(buf, encoded...), nil
}

func respondLegacyPing(conn *gonet.Conn, deps *Deps) error {
	version := deps.Config.Server.Version
	resp, err := legacyPingResponse(
		version,
		fmt.Sprintf("Unsupported client version. Please use %s instead.", version),
		deps.Players.Count(),
		deps.Config.Server.MaxPlayers,
	)
	if err != nil {
		return err
	}
	return conn.WriteRaw(resp)
}
