package renderer

// MaxClipPlanes is the number of gl_ClipDistance slots the mesh shader writes.
const MaxClipPlanes = 3

const meshVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;

uniform mat4 uViewProj;
uniform mat4 uModel;
uniform mat3 uNormalMatrix;
uniform vec4 uClipPlanes[3];
uniform int uNumPlanes;

out vec3 vNormal;
out vec3 vWorldPos;
out float gl_ClipDistance[3];

void main() {
	vec4 world = uModel * vec4(aPos, 1.0);
	vWorldPos = world.xyz;
	vNormal = uNormalMatrix * aNormal;
	for (int i = 0; i < 3; i++) {
		gl_ClipDistance[i] = i < uNumPlanes ? dot(uClipPlanes[i], world) : 1.0;
	}
	gl_Position = uViewProj * world;
}
`

const meshFragmentShader = `
#version 410 core

in vec3 vNormal;
in vec3 vWorldPos;

uniform vec4 uColor;
uniform vec3 uEye;
uniform int uUnlit;

out vec4 FragColor;

void main() {
	if (uUnlit != 0) {
		FragColor = uColor;
		return;
	}
	vec3 n = normalize(vNormal);
	vec3 v = normalize(uEye - vWorldPos);
	if (!gl_FrontFacing) {
		n = -n;
	}
	vec3 l = normalize(v + vec3(0.3, 0.6, 0.2));
	float diffuse = max(dot(n, l), 0.0);
	vec3 h = normalize(l + v);
	float spec = pow(max(dot(n, h), 0.0), 32.0) * 0.25;
	vec3 rgb = uColor.rgb * (0.25 + 0.75 * diffuse) + vec3(spec);
	FragColor = vec4(rgb, uColor.a);
}
`
