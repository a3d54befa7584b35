package inbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"unimail/models"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"golang.org/x/net/html"
)

const cidAttr = "data-cid"

// Fetcher retrieves an image resource the body references but does not
// embed: an ephemeral blob or a server-hosted attachment path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, mimeType string, err error)
}

// HTTPFetcher is the production Fetcher. Relative paths are resolved against
// the configured asset host.
type HTTPFetcher struct {
	Client  *fasthttp.Client
	BaseURL string
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (f *HTTPFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "/") {
		url = f.BaseURL + url
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	if err := f.Client.Do(req, resp); err != nil {
		return nil, "", err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, string(resp.Header.ContentType()), nil
}

// Harvester extracts embeddable images from an HTML body and turns each into
// a Content-ID-addressed inline attachment, rewriting the body as it goes.
type Harvester struct {
	fetcher Fetcher
	now     func() time.Time
	log     *logrus.Entry
}

func NewHarvester(fetcher Fetcher) *Harvester {
	return &Harvester{
		fetcher: fetcher,
		now:     time.Now,
		log:     logrus.WithField("component", "harvester"),
	}
}

var dataImageRe = regexp.MustCompile(`^data:(image/[a-zA-Z0-9.+-]+);base64,(.+)$`)

type harvestJob struct {
	node *html.Node
	src  string

	// filled by the fetch goroutine
	data []byte
	mime string
	err  error
}

// Harvest scans the body for images in the three source encodings - embedded
// base64 data-URIs, ephemeral blob references, and server-hosted relative
// attachment paths - and converts each into an inline attachment with a
// fresh Content-ID. The image keeps a viewable base64 source for preview and
// gains a data-cid marker; ApplyContentIDReferences later swaps the source
// to cid: form for the outbound MIME body. Images already carrying a marker
// are skipped, so running Harvest over its own output is a no-op. Blob and
// hosted fetches run concurrently and are joined once before the rewrite.
func (h *Harvester) Harvest(ctx context.Context, body string) (string, []models.Attachment, error) {
	if strings.TrimSpace(body) == "" {
		return body, nil, nil
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		// malformed markup falls through untouched rather than failing compose
		return body, nil, nil
	}

	var inlineNodes []*html.Node // data-URI images, no fetch needed
	var jobs []*harvestJob
	walkImages(doc, func(img *html.Node) {
		if getAttr(img, cidAttr) != "" {
			return
		}
		src := getAttr(img, "src")
		switch {
		case strings.HasPrefix(src, "data:image/"):
			inlineNodes = append(inlineNodes, img)
		case strings.HasPrefix(src, "blob:"), strings.HasPrefix(src, "/"):
			jobs = append(jobs, &harvestJob{node: img, src: src})
		}
	})
	if len(inlineNodes) == 0 && len(jobs) == 0 {
		return body, nil, nil
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(j *harvestJob) {
			defer wg.Done()
			j.data, j.mime, j.err = h.fetcher.Fetch(ctx, j.src)
		}(job)
	}
	wg.Wait()

	stamp := h.now().UnixMilli()
	seq := 0
	var attachments []models.Attachment

	for _, img := range inlineNodes {
		m := dataImageRe.FindStringSubmatch(getAttr(img, "src"))
		if m == nil {
			continue
		}
		attachments = append(attachments, h.attach(img, m[1], m[2], stamp, &seq))
	}
	for _, job := range jobs {
		if job.err != nil {
			h.log.WithError(job.err).WithField("src", job.src).Warn("inline image fetch failed, leaving reference as-is")
			continue
		}
		mime := job.mime
		if !strings.HasPrefix(mime, "image/") {
			mime = "image/png"
		}
		payload := base64.StdEncoding.EncodeToString(job.data)
		attachments = append(attachments, h.attach(job.node, mime, payload, stamp, &seq))
	}

	return renderBody(doc), attachments, nil
}

// attach assigns the Content-ID, rewrites the node for preview, and builds
// the attachment entry.
func (h *Harvester) attach(img *html.Node, mime, payload string, stamp int64, seq *int) models.Attachment {
	ext := "png"
	if i := strings.Index(mime, "/"); i >= 0 && i+1 < len(mime) {
		ext = strings.ToLower(mime[i+1:])
	}
	cid := fmt.Sprintf("inline%d-%d@local", stamp, *seq)
	name := fmt.Sprintf("inline-%d-%d.%s", stamp, *seq, ext)
	*seq++

	setAttr(img, "src", "data:"+mime+";base64,"+payload)
	setAttr(img, cidAttr, cid)

	return models.Attachment{
		Name:          name,
		MimeType:      mime,
		ContentID:     cid,
		Inline:        true,
		Base64Content: payload,
	}
}

// ApplyContentIDReferences rewrites every marked image to a cid: source.
// Must run after harvesting; preview bodies and outbound MIME bodies both
// derive from the same marked DOM.
func ApplyContentIDReferences(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return body
	}
	changed := false
	walkImages(doc, func(img *html.Node) {
		if cid := getAttr(img, cidAttr); cid != "" {
			setAttr(img, "src", "cid:"+cid)
			changed = true
		}
	})
	if !changed {
		return body
	}
	return renderBody(doc)
}

func walkImages(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.Data == "img" {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkImages(c, fn)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// renderBody serializes the children of <body>, dropping the wrapper
// elements html.Parse adds around a fragment.
func renderBody(doc *html.Node) string {
	body := findBody(doc)
	if body == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
