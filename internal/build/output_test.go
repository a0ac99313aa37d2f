package build

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/module"
)

func TestResultOutputsProduceDigestsPerBundle(t *testing.T) {
	files := map[string]string{
		"a.js": `exports.x = require("./b.js");`,
		"b.js": `module.exports = 2;`,
	}
	b := newTestBuilder(files)

	entry, ok := b.resolver.GetOrCreateModule("./a.js", "")
	require.True(t, ok)
	entry.Type = "text/javascript"
	entry.SetText(files["a.js"])

	bModule, ok := b.resolver.GetOrCreateModule("./b.js", "")
	require.True(t, ok)
	bModule.Type = "text/javascript"
	bModule.SetText(files["b.js"])

	result, err := b.Build([]*module.Module{entry}, nil)
	require.NoError(t, err)

	outs := result.Outputs()
	require.Len(t, outs, 1)

	out := outs[0]
	assert.Equal(t, entry, out.OriginalModule)
	assert.Equal(t, entry.OriginalPath, out.Path)
	assert.Equal(t, int64(len(out.Content)), out.Size)
	assert.Equal(t, entry.Hash(), out.Hash)

	wantMD5 := md5.Sum([]byte(out.Content))
	wantSHA1 := sha1.Sum([]byte(out.Content))
	assert.Equal(t, hex.EncodeToString(wantMD5[:]), out.MD5)
	assert.Equal(t, hex.EncodeToString(wantSHA1[:]), out.SHA1)
}
