package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/delphi123/TC234-Test/tc23x"
)

var (
	serveOpts = struct {
		port   int
		serial string
		baud   int
	}{}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Accept clock commands over TCP or a serial console",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			s := openSession()
			defer s.Close()
			srv := NewServer(s.sys, s.profiles)
			if serveOpts.serial != "" {
				err := srv.ServeSerial(serveOpts.serial, serveOpts.baud)
				if err != nil {
					log.Fatalf("Failed serving %s: %v", serveOpts.serial, err)
				}
				return
			}
			l, err := net.Listen("tcp", fmt.Sprintf(":%d", serveOpts.port))
			if err != nil {
				log.Fatalf("Failed creating server: %v", err)
			}
			log.Printf("Listening on port %d", serveOpts.port)
			srv.handleConnections(l)
		},
	}
)

func init() {
	serveCmd.Flags().IntVar(&serveOpts.port, "port", 24601, "the port that the server should listen to")
	serveCmd.Flags().StringVar(&serveOpts.serial, "serial", "", "serve on this serial port instead of TCP")
	serveCmd.Flags().IntVar(&serveOpts.baud, "baud", 115200, "serial port baud rate")
	rootCmd.AddCommand(serveCmd)
}

// Server speaks a line protocol: one command per line, words split the way
// a shell would. Replies are OK, a value line, or ERR: followed by the reason.
type Server struct {
	sys      *tc23x.System
	profiles tc23x.ProfileSet
}

func NewServer(sys *tc23x.System, profiles tc23x.ProfileSet) *Server {
	return &Server{sys, profiles}
}

func boolReply(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// runCommand executes one command and returns the reply line.
func (s *Server) runCommand(cmd string, parms []string) (string, error) {
	switch cmd {
	case "PROFILE":
		if len(parms) != 1 {
			return "", fmt.Errorf("PROFILE wants a profile name")
		}
		p, err := s.profiles.Lookup(parms[0])
		if err != nil {
			return "", err
		}
		s.sys.ConfigurePLL(p)
		return "OK", nil
	case "PROFILES":
		return strings.Join(s.profiles.Names(), " "), nil
	case "CLOCKS":
		c := s.sys.Clocks()
		return fmt.Sprintf("PLL=%d CPU=%d SPB=%d STM=%d CAN=%d", c.PLL, c.CPU, c.SPB, c.STM, c.CAN), nil
	case "IDLE":
		s.sys.Idle()
		return "OK", nil
	case "SLEEP":
		s.sys.Sleep()
		return "OK", nil
	case "DELAY":
		if len(parms) != 1 {
			return "", fmt.Errorf("DELAY wants microseconds")
		}
		us, err := strconv.ParseUint(parms[0], 10, 32)
		if err != nil {
			return "", fmt.Errorf("error parsing delay: %v", err)
		}
		s.sys.Delay(uint32(us))
		return "OK", nil
	case "CACHE":
		switch len(parms) {
		case 0:
			return boolReply(s.sys.IsCacheEnabled()), nil
		case 1:
			on, err := parseOnOff(parms[0])
			if err != nil {
				return "", err
			}
			return boolReply(s.sys.SetCache(on)), nil
		}
		return "", fmt.Errorf("CACHE wants at most ON or OFF")
	case "PROTECT":
		if len(parms) < 1 || len(parms) > 2 {
			return "", fmt.Errorf("PROTECT wants a domain and optionally ON or OFF")
		}
		d, err := parseDomain(parms[0])
		if err != nil {
			return "", fmt.Errorf("error parsing domain: %v", err)
		}
		if len(parms) == 1 {
			return boolReply(s.sys.Protected(d)), nil
		}
		on, err := parseOnOff(parms[1])
		if err != nil {
			return "", err
		}
		if on {
			s.sys.EnableProtection(d)
		} else {
			s.sys.DisableProtection(d)
		}
		return "OK", nil
	}
	return "", fmt.Errorf("unknown command: %s", cmd)
}

func (s *Server) handleConnection(c io.ReadWriteCloser, name string) {
	log.Printf("Handling connection from %s", name)
	defer c.Close()
	r := bufio.NewReader(c)
	w := bufio.NewWriter(c)
	for {
		l, err := r.ReadString('\n')
		if err == io.EOF {
			log.Printf("EOF for connection %s", name)
			return
		}
		if err != nil {
			log.Printf("Error reading string for connection %s: %v", name, err)
			return
		}
		l = strings.TrimSpace(l)
		log.Printf("Got line '%s'", l)
		t, err := shlex.Split(l)
		if err != nil {
			t = nil
			err = fmt.Errorf("error splitting line: %v", err)
		}
		if len(t) == 0 && err == nil {
			continue
		}
		reply := ""
		if err == nil {
			cmd := strings.ToUpper(t[0])
			if cmd == "QUIT" {
				return
			}
			reply, err = s.runCommand(cmd, t[1:])
		}
		if err != nil {
			log.Printf("Error running command: %v", err)
			reply = "ERR: " + err.Error()
		}
		w.WriteString(reply + "\n")
		err = w.Flush()
		if err != nil {
			log.Printf("error writing reply: %v", err)
			return
		}
	}
}

func (s *Server) handleConnections(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			log.Printf("Error accepting connection: %v", err)
			continue
		}
		go s.handleConnection(conn, conn.RemoteAddr().String())
	}
}

// ServeSerial handles commands on a serial console until the port closes.
func (s *Server) ServeSerial(dev string, baud int) error {
	port, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("couldn't open %s: %v", dev, err)
	}
	log.Printf("Serving on %s at %d baud", dev, baud)
	s.handleConnection(port, dev)
	return nil
}
