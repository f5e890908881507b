package xmlstream

import "strings"

// NodePath 基础节点路径
type NodePath string

const (
	// SitemapNodePath sitemap索引中的子sitemap条目
	SitemapNodePath NodePath = "sitemapindex/sitemap"
	// URLNodePath urlset中的URL条目
	URLNodePath NodePath = "urlset/url"
)

// Node 基础节点下的字段节点
type Node string

const (
	NodeChangeFrequency      Node = "changefreq"
	NodeLastModificationDate Node = "lastmod"
	NodeLocation             Node = "loc"
	NodePriority             Node = "priority"
)

var knownNodes = []Node{
	NodeChangeFrequency,
	NodeLastModificationDate,
	NodeLocation,
	NodePriority,
}

// AsPath 返回字段在基础路径下的完整路径
func (n Node) AsPath(base NodePath) string {
	return string(base) + "/" + string(n)
}

// TryFromPath 从完整路径解析字段节点
// 基础路径不匹配或字段未知时返回false
func TryFromPath(path string, base NodePath) (Node, bool) {
	prefix := string(base) + "/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}

	name := path[len(prefix):]
	for _, node := range knownNodes {
		if string(node) == name {
			return node, true
		}
	}
	return "", false
}
