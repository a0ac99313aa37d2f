package bundler

// preludeScript is spec.md §4.7 step 1's loader prelude: "a
// self-initialising registry with cache, define(name, factory),
// require(name|names, callback?, data?), async(url, callback),
// style(content)." Modeled after esbuild's own bundled runtime shape
// (a self-invoking function assigning onto a single global, internal/
// runtime/runtime.go) but with tpack-specific module/require/async/style
// semantics instead of esbuild's __commonJS/__esm helpers.
const preludeScript = `var tpack = (function() {
  var registry = {};
  var cache = {};

  function define(name, factory) {
    registry[name] = factory;
  }

  function requireOne(name) {
    if (Object.prototype.hasOwnProperty.call(cache, name)) {
      return cache[name].exports;
    }
    var factory = registry[name];
    if (!factory) {
      throw new Error("Cannot find module '" + name + "'");
    }
    var module = { exports: {}, loaded: false };
    cache[name] = module;
    factory(requireFn, module.exports, module);
    module.loaded = true;
    return module.exports;
  }

  function requireFn(names, callback, data) {
    if (typeof names === "string") {
      return requireOne(names);
    }
    var remaining = names.length;
    var results = new Array(names.length);
    if (remaining === 0) {
      if (callback) callback.apply(null, results);
      return;
    }
    names.forEach(function(name, i) {
      asyncFn(name, function(exports) {
        results[i] = exports;
        if (--remaining === 0 && callback) {
          callback.apply(null, results);
        }
      });
    });
  }

  function asyncFn(url, callback) {
    if (registry[url]) {
      callback(requireOne(url));
      return;
    }
    var script = document.createElement("script");
    script.src = url;
    script.onload = function() {
      callback(requireOne(url));
    };
    document.head.appendChild(script);
  }

  function style(content) {
    var tag = document.createElement("style");
    tag.textContent = content;
    document.head.appendChild(tag);
    return content;
  }

  return { define: define, require: requireFn, async: asyncFn, style: style };
})();
`
