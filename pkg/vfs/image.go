package vfs

import (
	"encoding/json"
	"time"

	"src.oopis.sh/pkg/oserr"
)

// ImageVersion is the metadata version written into serialized images.
const ImageVersion = 1

// Image is the self-contained serialization of a filesystem tree. All
// persisted state is JSON, UTF-8.
type Image struct {
	Version int        `json:"version"`
	SavedAt string     `json:"savedAt,omitempty"`
	Root    *NodeImage `json:"root"`
}

// NodeImage is the serialized form of a Node.
type NodeImage struct {
	Type     string                `json:"type"`
	Owner    string                `json:"owner"`
	Group    string                `json:"group"`
	Mode     uint16                `json:"mode"`
	Mtime    string                `json:"mtime"`
	Content  string                `json:"content,omitempty"`
	Target   string                `json:"target,omitempty"`
	Children map[string]*NodeImage `json:"children,omitempty"`
}

// Image captures the current tree as an Image.
func (fs *FS) Image() *Image {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return &Image{
		Version: ImageVersion,
		SavedAt: fs.clock.Now().UTC().Format(time.RFC3339),
		Root:    imageNode(fs.root),
	}
}

// EncodeImage captures and marshals the current tree.
func (fs *FS) EncodeImage() ([]byte, error) {
	data, err := json.Marshal(fs.Image())
	if err != nil {
		return nil, oserr.Newf(oserr.Internal, "cannot encode filesystem image: %v", err)
	}
	return data, nil
}

// DecodeImage unmarshals an image.
func DecodeImage(data []byte) (*Image, error) {
	var img Image
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, oserr.Newf(oserr.InvalidInput, "malformed filesystem image: %v", err)
	}
	if img.Root == nil {
		return nil, oserr.Newf(oserr.InvalidInput, "filesystem image has no root")
	}
	return &img, nil
}

// RestoreImage replaces the in-memory tree with the given image.
func (fs *FS) RestoreImage(img *Image) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.root = img.Root.node()
}

func imageNode(n *Node) *NodeImage {
	img := &NodeImage{
		Type:    n.Type.String(),
		Owner:   n.Owner,
		Group:   n.Group,
		Mode:    n.Mode,
		Mtime:   n.Mtime.UTC().Format(time.RFC3339),
		Content: n.Content,
		Target:  n.Target,
	}
	if n.Children != nil {
		img.Children = make(map[string]*NodeImage, len(n.Children))
		for name, child := range n.Children {
			img.Children[name] = imageNode(child)
		}
	}
	return img
}

func (img *NodeImage) node() *Node {
	n := &Node{
		Owner:   img.Owner,
		Group:   img.Group,
		Mode:    img.Mode,
		Content: img.Content,
		Target:  img.Target,
	}
	switch img.Type {
	case "directory":
		n.Type = TypeDir
		n.Children = make(map[string]*Node, len(img.Children))
		for name, child := range img.Children {
			n.Children[name] = child.node()
		}
	case "symlink":
		n.Type = TypeSymlink
	default:
		n.Type = TypeFile
	}
	if t, err := time.Parse(time.RFC3339, img.Mtime); err == nil {
		n.Mtime = t
	}
	return n
}
