package grinder

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const scriptPreamble = `# The Grinder 3.11
# HTTP script recorded by har2grinder

from net.grinder.script import Test
from net.grinder.script.Grinder import grinder
from net.grinder.plugin.http import HTTPPluginControl, HTTPRequest
from HTTPClient import NVPair
connectionDefaults = HTTPPluginControl.getConnectionDefaults()
httpUtilities = HTTPPluginControl.getHTTPUtilities()

# To use a proxy server, uncomment the next line and set the host and port.
# connectionDefaults.setProxyServer("localhost", 8001)

def createRequest(test, url, headers=None):
    request = HTTPRequest(url=url)
    if headers: request.headers=headers
    test.record(request, HTTPRequest.getHttpMethodFilter())
    return request

# These definitions at the top level of the file are evaluated once,
# when the worker process is started.

connectionDefaults.defaultHeaders = []

# The cookie module would strip Cookie headers set on recorded requests.
connectionDefaults.useCookies = 0
`

const (
	methodIndent = "    "
	bodyIndent   = "        "
)

// Script is a compiled trace ready for emission.
type Script struct {
	Library           []HeaderPair
	Exchanges         []CompiledExchange
	Pages             []PageProcedure
	SleepBetweenPages int
	Stats             Stats
}

// WriteTo writes the script text to w.
func (s *Script) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	s.render(&buf)
	return buf.WriteTo(w)
}

func (s *Script) Bytes() []byte {
	var buf bytes.Buffer
	s.render(&buf)
	return buf.Bytes()
}

func (s *Script) String() string { return string(s.Bytes()) }

func (s *Script) render(b *bytes.Buffer) {
	b.WriteString(scriptPreamble)

	b.WriteString("\n# HEADER LIBRARY SECTION\nheader_lib = [\n")
	for i, p := range s.Library {
		fmt.Fprintf(b, "%sNVPair(%s, %s),  # %d\n", methodIndent, pyString(p.Name), pyString(p.Value), i)
	}
	b.WriteString("]\n")

	b.WriteString("\n# HEADERS SECTION\n")
	for _, c := range s.Exchanges {
		if len(c.HeaderRefs) == 0 {
			fmt.Fprintf(b, "%s = []\n", c.HeadersName())
			continue
		}
		fmt.Fprintf(b, "%s = [\n", c.HeadersName())
		for _, ref := range c.HeaderRefs {
			fmt.Fprintf(b, "%sheader_lib[%d],\n", methodIndent, ref)
		}
		b.WriteString("]\n")
	}

	b.WriteString("\n# REQUESTS SECTION\n")
	for _, c := range s.Exchanges {
		fmt.Fprintf(b, "%s = createRequest(Test(%d, %s), %s, %s)\n",
			c.RequestName(), c.TestNumber, pyString(c.Description()), pyString(c.Target.Origin), c.HeadersName())
	}

	b.WriteString("\n\nclass TestRunner:\n")
	b.WriteString(methodIndent + `"""A TestRunner instance is created for each worker thread."""` + "\n")
	for _, p := range s.Pages {
		b.WriteString("\n")
		fmt.Fprintf(b, "%s# %s\n", methodIndent, commentText(p.Title))
		fmt.Fprintf(b, "%s# %s\n", methodIndent, commentText(p.ID))
		fmt.Fprintf(b, "%sdef %s(self):\n", methodIndent, p.Name())
		writeBody(b, p.Calls)
	}

	b.WriteString("\n")
	b.WriteString(methodIndent + "def __call__(self):\n")
	b.WriteString(bodyIndent + `"""Called for every run performed by the worker thread."""` + "\n")
	calls := make([]string, 0, 2*len(s.Pages))
	for i, p := range s.Pages {
		if i > 0 {
			calls = append(calls, fmt.Sprintf("grinder.sleep(%d)", s.SleepBetweenPages))
		}
		calls = append(calls, "self."+p.Name()+"()")
	}
	writeBody(b, calls)

	b.WriteString("\n\n# Instrument page methods.\n")
	for _, p := range s.Pages {
		fmt.Fprintf(b, "Test(%d, %s).record(TestRunner.%s)\n", p.TestNumber, pyString(p.ID), p.Name())
	}
}

func writeBody(b *bytes.Buffer, lines []string) {
	if len(lines) == 0 {
		b.WriteString(bodyIndent + "pass\n")
		return
	}
	for _, l := range lines {
		b.WriteString(bodyIndent)
		b.WriteString(strings.TrimSpace(l))
		b.WriteString("\n")
	}
}
