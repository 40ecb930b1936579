package s3compat

import (
	"strings"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
)

// Provider describes how one vendor's S3-compatible API is reached.
type Provider struct {
	Name string
	// Endpoint derives the base endpoint from settings. An empty result
	// means the SDK default for the region.
	Endpoint func(s backend.Settings) string
	// SigningRegion maps the configured region to the one used for SigV4.
	SigningRegion func(s backend.Settings) string
	// Markers selects marker-based ListObjects instead of ListObjectsV2.
	Markers   bool
	PathStyle bool
}

const (
	cloudflareSuffix = ".r2.cloudflarestorage.com"
	aliyunSuffix     = ".aliyuncs.com"
	baiduSuffix      = ".bcebos.com"
	qcloudSuffix     = ".myqcloud.com"
)

func region(s backend.Settings) string { return s.Region }

// bareRegion strips a vendor host prefix and suffix, so "bj" and
// "s3.bj.bcebos.com" both give "bj".
func bareRegion(region, prefix, suffix string) string {
	region = strings.TrimSuffix(region, suffix)
	return strings.TrimPrefix(region, prefix)
}

func https(host string) string {
	if strings.HasPrefix(host, "https://") || strings.HasPrefix(host, "http://") {
		return host
	}
	return "https://" + host
}

var (
	AWS = Provider{
		Name:          "aws",
		Endpoint:      func(backend.Settings) string { return "" },
		SigningRegion: region,
	}

	// Cloudflare R2 takes the account id as region.
	Cloudflare = Provider{
		Name: "cloudflare",
		Endpoint: func(s backend.Settings) string {
			return https(backend.HostWithSuffix(s.Region, cloudflareSuffix))
		},
		SigningRegion: func(backend.Settings) string { return "auto" },
	}

	// Aliyun OSS takes the OSS region id, e.g. oss-cn-hangzhou.
	Aliyun = Provider{
		Name: "aliyun",
		Endpoint: func(s backend.Settings) string {
			return https(backend.HostWithSuffix(s.Region, aliyunSuffix))
		},
		SigningRegion: func(s backend.Settings) string {
			return strings.TrimSuffix(s.Region, aliyunSuffix)
		},
		Markers: true,
	}

	// Baidu BOS takes the BOS region, e.g. bj or gz.
	Baidu = Provider{
		Name: "baidu",
		Endpoint: func(s backend.Settings) string {
			return "https://s3." + bareRegion(s.Region, "s3.", baiduSuffix) + baiduSuffix
		},
		SigningRegion: func(s backend.Settings) string {
			return bareRegion(s.Region, "s3.", baiduSuffix)
		},
		Markers:       true,
	}

	// Tencent COS takes the COS region, e.g. ap-guangzhou.
	QCloud = Provider{
		Name: "qcloud",
		Endpoint: func(s backend.Settings) string {
			return "https://cos." + bareRegion(s.Region, "cos.", qcloudSuffix) + qcloudSuffix
		},
		SigningRegion: func(s backend.Settings) string {
			return bareRegion(s.Region, "cos.", qcloudSuffix)
		},
		Markers:       true,
	}
)

// endpoint resolves the base endpoint, honoring an explicit override.
func (p Provider) endpoint(s backend.Settings) string {
	if s.Endpoint != "" {
		return https(s.Endpoint)
	}
	return p.Endpoint(s)
}
